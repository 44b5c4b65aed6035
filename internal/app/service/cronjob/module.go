package cronjob

import "go.uber.org/fx"

// Module exposes the daily job runner via Fx.
var Module = fx.Options(
	fx.Provide(NewRunner),
)
