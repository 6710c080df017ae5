// Package assets carries the stock grammar and world fixture shipped with
// hfparse. `hfparse init` writes them into a new project.
package assets

import _ "embed"

//go:embed commands.yml
var Grammar []byte

//go:embed world_default.yml
var World []byte

//go:embed hfparse.yaml
var ProjectConfig []byte
