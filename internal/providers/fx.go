package providers

import (
	"github.com/cablebill/cablebill/internal/providers/pdf"
	"github.com/cablebill/cablebill/internal/providers/storage"
	"go.uber.org/fx"
)

// Module provides the document renderers and stores. Outbound messaging,
// including the SMTP provider, is wired by the notification module.
var Module = fx.Module("providers",
	pdf.Module,
	storage.Module,
)
