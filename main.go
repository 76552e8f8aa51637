package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	buspkg "github.com/sat8bit/roundtable/bus"
	"github.com/sat8bit/roundtable/buslog"
	"github.com/sat8bit/roundtable/config"
	"github.com/sat8bit/roundtable/driver"
	"github.com/sat8bit/roundtable/fetcher"
	"github.com/sat8bit/roundtable/llm"
	"github.com/sat8bit/roundtable/memory"
	"github.com/sat8bit/roundtable/persona"
	"github.com/sat8bit/roundtable/renderer"
	"github.com/sat8bit/roundtable/session"
)

func main() {
	// --- コマンドライン引数のパース ---
	var (
		topicFlag    = flag.String("topic", "", "Discussion topic (fetched from the news feed if empty)")
		participants = flag.String("participants", "", "Comma-separated participant names (all experts if empty)")
		maxRounds    = flag.Int("rounds", 20, "Maximum number of auto-discussion rounds before shutdown")
	)
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl+C シグナルで cancel()
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// --- ペルソナを埋め込みリソースから読み込む ---
	registry, err := persona.NewRegistry()
	if err != nil {
		log.Fatalf("failed to load persona registry: %v", err)
	}
	if err := persona.NewStore(cfg.DataDir).Load(registry); err != nil {
		log.Fatalf("failed to apply persona overrides: %v", err)
	}

	logLevel, err := cfg.Level()
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}

	bus := buspkg.NewMemoryBus()
	logger := slog.New(buslog.NewBusHandler(bus, logLevel))
	slog.SetDefault(logger)

	// --- レンダラーを初期化 ---
	var wg sync.WaitGroup
	consoleRenderer := renderer.NewConsoleRenderer()
	if err := consoleRenderer.Render(bus, &wg); err != nil {
		log.Fatalf("failed to initialize console renderer: %v", err)
	}
	markdownRenderer := renderer.NewMarkdownRenderer(cfg.OutputDir)
	if err := markdownRenderer.Render(bus, &wg); err != nil {
		log.Fatalf("failed to initialize markdown renderer: %v", err)
	}

	// --- LLMバックエンドを初期化 ---
	var llmClient llm.LLM
	switch cfg.Backend {
	case "gemini":
		llmClient, err = llm.NewGemini(ctx, cfg.GeminiProject, cfg.GeminiLocation, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("failed to create gemini client: %v", err)
		}
	default:
		llmClient = llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}

	// --- 発言アーカイブ（任意） ---
	var recorder memory.Recorder = memory.Noop{}
	if cfg.MemoryEnabled {
		store, err := memory.NewStore(cfg.DataDir, logger)
		if err != nil {
			log.Fatalf("failed to open memory store: %v", err)
		}
		defer store.Close()
		recorder = store
	}

	// --- 話題が未指定ならニュースフィードから拾う ---
	topic := *topicFlag
	if topic == "" && cfg.TopicFeedURL != "" {
		topic = fetchTopic(ctx, cfg.TopicFeedURL, cfg.TopicKeywords)
	}
	if topic == "" {
		log.Fatal("no topic: pass -topic or set TOPIC_FEED_URL")
	}

	// --- セッションを組み立てて開始 ---
	sess := session.New(registry, llmClient, bus,
		session.WithRecorder(recorder),
		session.WithLogger(logger),
		session.WithQuickReplyProb(cfg.QuickReplyProb),
	)

	var names []string
	if *participants != "" {
		names = strings.Split(*participants, ",")
	}
	sess.Start(topic, nil, names)
	sess.InitialOpinions(ctx)
	sess.StartAuto()

	drv := driver.New(sess, bus,
		driver.WithTurnInterval(cfg.TurnInterval),
		driver.WithGenerationTimeout(cfg.GenerationTimeout),
		driver.WithMaxRounds(*maxRounds),
		driver.WithLogger(logger),
	)
	drv.Start(ctx)

	// 自動討論ループの終了待ち（シグナル、規定ラウンド到達、聴衆ゼロ）
	drv.Wait()
	drv.Stop()

	// 終了前に結論をまとめる。シグナル後なので短めのタイムアウトで。
	concludeCtx, concludeCancel := context.WithTimeout(context.Background(), cfg.GenerationTimeout)
	if _, err := sess.Conclusion(concludeCtx); err != nil {
		slog.Warn("failed to generate conclusion", "error", err)
	}
	concludeCancel()
	sess.Stop()

	bus.Close()
	wg.Wait()
	fmt.Println("")
	fmt.Println("Shutting down...")
}

// fetchTopic は、ニュースフィードから最新の話題を1件取得します。
// keywords が指定されていれば、該当する記事に絞り込みます。
func fetchTopic(ctx context.Context, feedURL string, keywords []string) string {
	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	f := fetcher.NewRSSFetcher(feedURL, 5, keywords...)
	topics, err := f.Fetch(fetchCtx)
	if err != nil || len(topics) == 0 {
		slog.Warn("failed to fetch topics from feed", "url", feedURL, "error", err)
		return ""
	}
	return topics[0].Title
}
