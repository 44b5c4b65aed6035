package quota

import "go.uber.org/fx"

// Module exposes the quota ledger via Fx.
var Module = fx.Options(
	fx.Provide(NewLedger),
)
