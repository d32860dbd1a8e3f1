// =============================================================================
// hedgeflow 主入口
// =============================================================================
// 对冲基金多智能体会议系统的交互式入口
//
// 使用方法:
//
//	hedgeflow                          # 手动模式，演练 Provider
//	hedgeflow -config config.yaml      # 指定配置文件
//	hedgeflow -auto                    # 自动模式：后台驱动循环推进会议
//	hedgeflow -metrics :9090           # 暴露 Prometheus 指标
// =============================================================================
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/hedgeflow/agent"
	"github.com/BaSui01/hedgeflow/conference"
	"github.com/BaSui01/hedgeflow/config"
	"github.com/BaSui01/hedgeflow/internal/metrics"
	"github.com/BaSui01/hedgeflow/llm"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	autoMode := flag.Bool("auto", false, "自动模式：评估驱动的后台轮次推进")
	metricsAddr := flag.String("metrics", "", "Prometheus 指标监听地址，空则不暴露")
	showVersion := flag.Bool("version", false, "显示版本信息")
	flag.Parse()

	if *showVersion {
		fmt.Printf("hedgeflow %s (built %s)\n", Version, BuildTime)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.BuildLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, prometheus.DefaultRegisterer, logger)
	}
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	catalog, err := conference.LoadCatalog(cfg.Conference.CatalogPath)
	if err != nil {
		logger.Fatal("load catalog failed", zap.Error(err))
	}

	// 演练 Provider：真实部署在此接入具体的模型服务绑定
	provider := &llm.StaticProvider{Reply: "（演练模式）已收到，这是演练响应。"}

	panel := agent.DefaultPanel(provider, agent.PanelConfig{
		Model:       cfg.Agent.Model,
		Temperature: cfg.Agent.Temperature,
		MaxTokens:   cfg.Agent.MaxTokens,
		Timeout:     cfg.Agent.ModelTimeout,
		RateLimit:   cfg.Agent.RateLimit,
		RateBurst:   cfg.Agent.RateBurst,
	}, collector, logger)

	registry := conference.NewRegistry(panel.Lead(), catalog, conference.RegistryConfig{
		MaxRounds:   cfg.Conference.MaxRounds,
		SettleDelay: cfg.Conference.SettleDelay,
	}, collector, logger)
	defer registry.Close()

	mode := conference.ModeManual
	if *autoMode {
		mode = conference.ModeAutomatic
	}

	r := &router{
		registry: registry,
		panel:    panel,
		mode:     mode,
		logger:   logger,
	}

	userID := uuid.NewString()
	sessionID := uuid.NewString()

	fmt.Println(`欢迎使用 hedgeflow 多智能体会议系统。

我是Otto，您的对冲基金经理。我将协调我们的分析师团队为您提供投资建议。
我们的分析师团队包括：
- Dave: 比特币分析师，专注于加密货币市场
- Bob: 道琼斯30指数分析师，专注于股票市场
- Emily: 外汇分析师，专注于货币市场

您可以请求召开预算分配会议、经验分享会议或极端市场会议。
会议将进行多轮讨论，输入"下一轮"继续会议，或"结束会议"来总结会议结果。
输入 quit 退出。`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n您: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "quit") {
			fmt.Println("退出程序。再见！")
			break
		}
		r.Handle(ctx, input, userID, sessionID)

		select {
		case <-ctx.Done():
			fmt.Println("\n程序已中断。再见！")
			return
		default:
		}
	}
}
