package webchat

import _ "embed"

// defaultWidgetJS is the embeddable chat widget served from /webchat/widget.js.
// Deployments that want a branded widget pass their own bytes to NewHandler.
//
//go:embed widget.js
var defaultWidgetJS []byte
