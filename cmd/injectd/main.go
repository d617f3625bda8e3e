// Command injectd 用配置创建容器，注册示例组件，并提供诊断 HTTP 服务。
//
// 配置按顺序读取 inject.yaml（可选）和 INJECT_ 前缀的环境变量：
//
//	container:
//	  eagerSingletons: true
//	  logLevel: debug
//	diagnostics:
//	  addr: ":8089"
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/diagnostics"
	"github.com/gocrud/inject/logging"
)

type Animal interface {
	Sound() string
}

type Tiger struct{}

func (t *Tiger) Sound() string { return "roar" }

// Greeter 的 Lookup 在容器中被重定向到 FRESH 组件 "tiger"。
type Greeter struct {
	Lookup func() Animal
	Hello  func(name string) string
}

func NewGreeter() *Greeter {
	return &Greeter{
		Lookup: func() Animal { return nil },
		Hello:  func(name string) string { return "Hello, " + name },
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewConfigurationBuilder().
		AddYamlFile("inject.yaml", true).
		AddEnvironmentVariables("INJECT_").
		Build()
	if err != nil {
		return err
	}

	c, err := di.NewContainerFromConfig(cfg)
	if err != nil {
		return err
	}
	di.Register[Tiger](c, "tiger", di.WithTransient())
	di.Register[Greeter](c, "greeter",
		di.WithConstructor(NewGreeter),
		di.WithLookup("Lookup", "tiger"),
	)
	if err := c.Build(); err != nil {
		return err
	}

	logger := logging.NewLogger().WithCategory("injectd")
	g := di.MustResolve[*Greeter](c, "greeter")
	logger.Info(g.Hello("injectd"), logging.F("animal", g.Lookup().Sound()))

	srv := diagnostics.NewServer(cfg.GetWithDefault("diagnostics:addr", ":8089"), c, logger)
	if err := srv.Start(context.Background()); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}
