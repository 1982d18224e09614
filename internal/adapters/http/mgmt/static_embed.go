package mgmt

import (
	_ "embed"
)

//go:embed static/status.html
var statusPage []byte
