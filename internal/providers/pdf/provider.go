package pdf

import (
	"context"

	"go.uber.org/fx"
)

// Renderer turns a resolved bill snapshot into a printable document. It has
// no side effects.
type Renderer interface {
	RenderInvoice(ctx context.Context, data InvoiceData) ([]byte, error)
}

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)
