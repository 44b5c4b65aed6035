package saju

import "go.uber.org/fx"

// Module exposes the analysis service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
