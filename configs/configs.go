// Package configs は、リポジトリに同梱される既定リソースを埋め込みます。
package configs

import _ "embed"

//go:embed personas.yaml
var Personas []byte
