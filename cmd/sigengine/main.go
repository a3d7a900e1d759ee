package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"signal-systemv1/config"
	"signal-systemv1/internal/api"
	"signal-systemv1/internal/bus"
	"signal-systemv1/internal/candle"
	"signal-systemv1/internal/feed"
	"signal-systemv1/internal/logger"
	"signal-systemv1/internal/metrics"
	"signal-systemv1/internal/model"
	"signal-systemv1/internal/notification"
	"signal-systemv1/internal/predict"
	"signal-systemv1/internal/session"
	sigengine "signal-systemv1/internal/signal"
	redisstore "signal-systemv1/internal/store/redis"
	sqlitestore "signal-systemv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	slogger := logger.Init("sigengine", logger.ParseLevel(os.Getenv("LOG_LEVEL")))
	slogger.Info("starting signal engine")

	cfg := config.Load()

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Shutdown plumbing ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- SQLite signal log (off hot path) ----
	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		os.MkdirAll(dir, 0o755)
	}
	sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[sigengine] sqlite init failed: %v", err)
	}
	defer sqlWriter.Close()
	sqlWriter.OnCommit = func(d time.Duration) {
		prom.SQLiteCommitDur.Observe(d.Seconds())
	}
	health.SetSQLiteOK(true)

	sqlReader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[sigengine] sqlite reader init failed: %v", err)
	}
	defer sqlReader.Close()

	// ---- Redis publisher ----
	publisher, err := redisstore.NewPublisher(redisstore.PublisherConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Printf("[sigengine] WARNING: redis init failed: %v (continuing without redis)", err)
		health.SetRedisConnected(false)
	} else {
		health.SetRedisConnected(true)
		publisher.OnPublish = func(d time.Duration) {
			prom.RedisPublishDur.Observe(d.Seconds())
		}
	}

	if publisher != nil {
		health.StartLivenessChecker(ctx, publisher.Client(), sqlWriter.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, sqlWriter.DB(), 10*time.Second)
	}

	// ---- Candle aggregation ----
	aggregator := candle.New()
	aggregator.OnDroppedTick = func() {
		prom.DroppedTicks.Inc()
	}
	aggregator.OnClosedCandle = func(c model.Candle) {
		prom.CandlesTotal.Inc()
	}

	// ---- Signal engine ----
	engine := sigengine.New(
		sigengine.Config{
			MinConfidence: cfg.Signal.MinConfidence,
			MinCandles:    cfg.Volatility.MinCandlesForSignal,
		},
		predict.Config{
			ATRThreshold:            cfg.Volatility.ATRThreshold,
			TickVolatilityThreshold: cfg.Volatility.TickVolatilityThreshold,
			TickVolatilityWindow:    cfg.Volatility.TickVolatilityWindow,
		},
	)

	// ---- Event bus ----
	events := bus.New(256)
	events.OnDrop = func(kind string) {
		prom.BusDropsTotal.WithLabelValues(kind).Inc()
	}

	// ---- Feed client ----
	feedClient := feed.New(feed.Config{
		URL:        cfg.FeedURL,
		APIKey:     cfg.FeedAPIKey,
		TOTPSecret: cfg.FeedTOTPSecret,
	})
	feedClient.OnTick = func(t model.Tick) {
		prom.TicksTotal.Inc()
		health.SetLastTickTime(time.Now())
	}
	feedClient.OnTickDropped = func() {
		prom.DroppedTicks.Inc()
	}

	// ---- Session manager ----
	mgr := session.NewManager(session.Config{
		HistoryCandles: cfg.Signal.HistoryCandles,
		WindowCapacity: cfg.Signal.WindowCapacity,
		PreClose:       time.Duration(cfg.Signal.PreCloseSeconds) * time.Second,
	}, feedClient, aggregator, engine, events)
	mgr.OnSignal = func(sig model.SignalResult) {
		prom.SignalsTotal.WithLabelValues(string(sig.Direction)).Inc()
		if sig.VolatilityOverride {
			prom.VolatilityOverrides.Inc()
		}
	}
	mgr.OnCompute = func(d time.Duration) {
		prom.SignalComputeDur.Observe(d.Seconds())
	}

	feedClient.OnConnected = func() {
		health.SetFeedConnected(true)
		mgr.HandleReconnect(ctx)
	}
	feedClient.OnReconnect = func(success bool) {
		outcome := "failure"
		if success {
			outcome = "success"
		} else {
			health.SetFeedConnected(false)
		}
		prom.FeedReconnects.WithLabelValues(outcome).Inc()
	}

	go func() {
		if err := feedClient.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[sigengine] feed client exited: %v", err)
		}
	}()

	// ---- Signal consumers (all off the hot path) ----
	go sqlWriter.Run(ctx, events.SubscribeSignals())
	if publisher != nil {
		go publisher.Run(ctx, events.SubscribeSignals())
	}

	notifiers := []notification.Notifier{notification.NewLogNotifier()}
	if cfg.TelegramBotToken != "" {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	dispatcher := notification.NewDispatcher(notifiers...)
	dispatcher.SendTimeout = time.Duration(cfg.Signal.SendSignalSeconds) * time.Second
	dispatcher.ResolveChat = func(sessionID string) (string, bool) {
		sess, ok := mgr.GetSession(sessionID)
		if !ok {
			return "", false
		}
		return sess.ChatID, true
	}
	go dispatcher.Run(ctx, events.SubscribeSignals())

	// ---- Session lifecycle consumer: persistence + gauges ----
	go func() {
		sessionEvents := events.SubscribeSessions()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sessionEvents:
				if !ok {
					return
				}
				if err := sqlWriter.WriteSession(ctx, ev.Session); err != nil {
					log.Printf("[sigengine] session persist failed: %v", err)
				}
				n := mgr.ActiveSessionsCount()
				prom.ActiveSessions.Set(float64(n))
				health.SetActiveSessions(n)
			}
		}
	}()

	// ---- Session API ----
	apiSrv := &http.Server{
		Addr:    cfg.APIAddr,
		Handler: api.NewRouter(mgr, sqlReader, cfg.Signal.ChartCandles),
	}
	go func() {
		log.Printf("[sigengine] API listening on %s", cfg.APIAddr)
		if err := apiSrv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[sigengine] API server error: %v", err)
		}
	}()

	slogger.Info("signal engine ready",
		"feed", cfg.FeedURL,
		"api", cfg.APIAddr,
		"metrics", cfg.MetricsAddr,
		"min_confidence", cfg.Signal.MinConfidence,
		"pre_close_seconds", cfg.Signal.PreCloseSeconds,
	)

	// ---- Wait for shutdown signal ----
	<-sigCh
	slogger.Info("shutdown signal received")

	mgr.StopAll()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	apiSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)

	if publisher != nil {
		publisher.Close()
	}

	slogger.Info("shutdown complete")
}
