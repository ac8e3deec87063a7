package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	logs "github.com/danmuck/smplog"
	"github.com/danmuck/wadispatch/internal/config"
	"github.com/danmuck/wadispatch/internal/observability"
	"github.com/danmuck/wadispatch/internal/service"
	flag "github.com/spf13/pflag"
)

const defaultConfigPath = "cmd/dispatchctl/config.toml"

func main() {
	configPath := flag.StringP("config", "c", defaultConfigPath, "path to dispatch config (TOML)")
	addr := flag.String("addr", "", "listen address override")
	flag.Parse()

	observability.InitLogger("dispatchctl")

	cfg, err := resolveConfig(*configPath, *configPath != defaultConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dispatchctl: %v\n", err)
		os.Exit(1)
	}
	if v := strings.TrimSpace(*addr); v != "" {
		cfg.Addr = v
	}

	svc, err := service.NewServiceWithConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dispatchctl: %v\n", err)
		os.Exit(1)
	}
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "dispatchctl: %v\n", err)
		os.Exit(1)
	}
}

// resolveConfig falls back to defaults when the default path is absent. An
// explicitly named file must exist.
func resolveConfig(path string, explicit bool) (service.ServiceConfig, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			logs.Warnf("dispatchctl config not found at %s; using defaults", path)
			return service.DefaultServiceConfig(), nil
		}
		return service.ServiceConfig{}, err
	}
	if _, err := config.Load(path); err != nil {
		return service.ServiceConfig{}, err
	}
	return loadServiceConfig(path)
}
