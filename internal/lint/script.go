// Package lint runs user Lua rules over a compiled catalog. Rules see every
// attribute through the zcl module and report findings with zcl.report.
package lint

// ScriptMeta holds optional metadata from a script's first line,
// written as: -- {"name": "...", "enabled": true}
type ScriptMeta struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// Script is a lint rule file.
type Script struct {
	ID       string     `json:"id"` // filename stem (no .lua)
	Meta     ScriptMeta `json:"meta"`
	LuaCode  string     `json:"lua_code"`
	FilePath string     `json:"-"`
}

// Finding levels accepted by zcl.report.
const (
	LevelError   = "error"
	LevelWarning = "warning"
	LevelInfo    = "info"
)
