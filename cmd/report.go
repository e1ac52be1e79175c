package cmd

import (
	"os"
	"time"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

var (
	reportingEnabled bool
	// reportTransport 为空时使用 sentry 默认的 HTTP 传输
	reportTransport sentry.Transport
)

// initReporting 在设置了 SENTRY_DSN 时启用错误上报，否则不做任何事。
func initReporting() {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" || reportingEnabled {
		return
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:       dsn,
		Release:   os.Getenv("RELEASE"),
		Transport: reportTransport,
	}); err != nil {
		log.WithError(err).Warn("sentry 初始化失败，错误不会上报")
		return
	}
	reportingEnabled = true
}

// reportError 上报导出失败；未启用时只返回原错误。
func reportError(err error, tags map[string]string) error {
	if err == nil || !reportingEnabled {
		return err
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
	// 命令失败时 PersistentPostRun 不会执行，必须在此等待发送完成
	flushReporting()
	return err
}

func flushReporting() {
	if reportingEnabled {
		sentry.Flush(2 * time.Second)
	}
}
