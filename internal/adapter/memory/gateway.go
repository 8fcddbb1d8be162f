package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/JackDiSalvatore/EOS-DEX/internal/domain"
	"github.com/JackDiSalvatore/EOS-DEX/internal/port"
)

// OutboundTransfer is one transfer instruction the engine emitted.
type OutboundTransfer struct {
	To    string
	Token domain.Asset
	Memo  string
}

// TransferRecorder is a port.TransferGateway that records every instruction
// instead of delivering it. It stands in for the issuer-facing transfer
// mechanism in tests and single-process deployments.
type TransferRecorder struct {
	mu   sync.Mutex
	log  *zap.Logger
	sent []OutboundTransfer
}

var _ port.TransferGateway = (*TransferRecorder)(nil)

func NewTransferRecorder(log *zap.Logger) *TransferRecorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &TransferRecorder{log: log}
}

func (t *TransferRecorder) Transfer(ctx context.Context, to string, token domain.Asset, memo string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, OutboundTransfer{To: to, Token: token, Memo: memo})
	t.log.Info("outbound transfer",
		zap.String("to", to), zap.String("token", token.Key()),
		zap.Int64("amount", token.Amount), zap.Uint8("precision", token.Precision),
		zap.String("memo", memo))
	return nil
}

// Sent returns a copy of every recorded instruction in emission order.
func (t *TransferRecorder) Sent() []OutboundTransfer {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]OutboundTransfer, len(t.sent))
	copy(out, t.sent)
	return out
}
