package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/sajulab/sajuback/internal/app/api/server"
	"github.com/sajulab/sajuback/internal/app/service/account"
	"github.com/sajulab/sajuback/internal/app/service/cronjob"
	"github.com/sajulab/sajuback/internal/app/service/quota"
	"github.com/sajulab/sajuback/internal/app/service/saju"
	"github.com/sajulab/sajuback/internal/app/service/subscription"
	"github.com/sajulab/sajuback/internal/platform/db"
	"github.com/sajulab/sajuback/internal/platform/gemini"
	"github.com/sajulab/sajuback/internal/platform/toss"
	"github.com/sajulab/sajuback/pkg/config"
	"github.com/sajulab/sajuback/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	gemini.Module,
	toss.Module,
	quota.Module,
	saju.Module,
	subscription.Module,
	cronjob.Module,
	account.Module,
	server.Module,
)
