package main

import (
	"context"
	"encoding/base64"
	"flag"
	"os"
	"os/signal"
	"syscall"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/adaptive-signal/demand"
	"github.com/tsinghua-fib-lab/adaptive-signal/metrics"
	"github.com/tsinghua-fib-lab/adaptive-signal/server"
	"github.com/tsinghua-fib-lab/adaptive-signal/task"
	"github.com/tsinghua-fib-lab/adaptive-signal/utils/config"
)

var (
	// 配置文件路径，为空且未提供config-data时使用默认配置
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")
	// 无界面模式：不启动HTTP/websocket服务
	headless = flag.Bool("headless", false, "run without the http server")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "signal")
)

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	// 获取配置
	c := config.Default()
	var file []byte
	var err error
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
		if err != nil {
			log.Panicf("config file load err: %v", err)
		}
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
		if err != nil {
			log.Panicf("config data load err: %v", err)
		}
	} else {
		log.Info("no config specified, using defaults")
	}
	if file != nil {
		if c, err = config.Parse(file); err != nil {
			log.Panicf("config file load err: %v", err)
		}
	}
	log.Infof("%+v", c)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t := task.NewContext(c, demand.NewMock(c.Demand), metrics.New(prometheus.DefaultRegisterer))
	if !*headless && c.Server.Listen != "" {
		hub := server.NewHub()
		t.AddPublisher(hub)
		s := server.New(t, hub, prometheus.DefaultGatherer)
		go func() {
			if err := s.ListenAndServe(ctx, c.Server.Listen); err != nil {
				log.Errorf("http server: %v", err)
				stop()
			}
		}()
	}

	t.Run(ctx)
}
