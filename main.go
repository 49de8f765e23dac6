package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"git.fiblab.net/sim/crowding/v2/demand"
	"git.fiblab.net/sim/crowding/v2/network"
	"git.fiblab.net/sim/crowding/v2/simulate"
)

var (
	configPath = flag.String("config", "config.yaml", "path to the run config")
	logLevel   = flag.String("log-level", "info", "log level [debug, info, warn, error, fatal, panic]")

	benchmark = flag.Bool("benchmark", false, "benchmark mode: run across a range of thread counts instead of once")
	pprofAddr = flag.String("pprof", "localhost:52102", "pprof listening address")

	LOG_LEVELS = map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"fatal": logrus.FatalLevel,
		"panic": logrus.PanicLevel,
	}
)

func main() {
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	_ = godotenv.Load()
	flag.Parse()

	if level, ok := LOG_LEVELS[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		logrus.Fatalf("invalid log level: %s", *logLevel)
	}

	startHTTPDebugger(*pprofAddr)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("loading config: %v", err)
	}

	net, err := buildNetwork(cfg)
	if err != nil {
		logrus.Fatalf("building network: %v", err)
	}
	logrus.Infof("network built: %d stops, %d routes, %d trips", net.NumStops(), net.NumRoutes(), net.NumTrips())

	agents, err := loadAgents(net, cfg)
	if err != nil {
		logrus.Fatalf("loading demand: %v", err)
	}
	logrus.Infof("loaded %d agents", len(agents))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *benchmark {
		runBenchmark(ctx, net, agents, cfg)
		return
	}

	simCfg := simulate.Config{
		OuterRounds: cfg.OuterRounds,
		BagSize:     cfg.BagSize,
		MaxRounds:   cfg.MaxRounds,
		CostUtility: cfg.CostUtility,
		Crowding:    cfg.Crowding.Build(),
		StepSeconds: cfg.StepSeconds,
		Threads:     cfg.Threads,
	}

	if cfg.CrowdingSamplePath != "" {
		maxLoad := cfg.CrowdingSampleMaxLoad
		if maxLoad <= 0 {
			maxLoad = 2 * (cfg.DefaultSeatedCapacity + cfg.DefaultStandingCapacity)
		}
		if err := writeCrowdingSample(cfg.CrowdingSamplePath, simCfg.Crowding, cfg.DefaultSeatedCapacity, cfg.DefaultStandingCapacity, maxLoad); err != nil {
			logrus.Fatalf("writing crowding sample: %v", err)
		}
	}

	result, err := simulate.Run(ctx, net, agents, simCfg, nil)
	if err != nil {
		logrus.Fatalf("simulation failed: %v", err)
	}
	logrus.Infof("done: %d agents, %d unreachable, %d rounds", len(result.Agents), result.Unreachable, result.Rounds)

	if cfg.OutputPath != "" {
		if err := writeResult(cfg.OutputPath, net, result); err != nil {
			logrus.Fatalf("writing result: %v", err)
		}
	}
}

func buildNetwork(cfg *Config) (*network.Network, error) {
	data, err := os.ReadFile(cfg.NetworkPath)
	if err != nil {
		return nil, err
	}
	var in network.BuildInput
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	in.ModelDate = cfg.ModelDate
	in.MaxWalkTransferMeters = cfg.MaxWalkTransferMeters
	in.WalkingSpeedMetersPerSecond = cfg.WalkingSpeedMetersPerSecond
	in.DefaultCapacity = network.Capacity{Seated: cfg.DefaultSeatedCapacity, Standing: cfg.DefaultStandingCapacity}

	net, err := network.Build(in)
	if err != nil {
		return nil, err
	}

	if cfg.CapacityOverridesPath != "" {
		overrideData, err := os.ReadFile(cfg.CapacityOverridesPath)
		if err != nil {
			return nil, err
		}
		var overrides []network.CapacityOverride
		if err := yaml.Unmarshal(overrideData, &overrides); err != nil {
			return nil, err
		}
		network.ApplyCapacityOverrides(net, overrides)
	}

	return net, nil
}

func loadAgents(net *network.Network, cfg *Config) ([]demand.Agent, error) {
	if cfg.UseRandomDemand {
		return demand.GenerateRandom(net, demand.RandomConfig{
			Count:       cfg.RandomDemandCount,
			Seed:        cfg.RandomSeed,
			WindowStart: cfg.WindowStartSeconds,
			WindowEnd:   cfg.WindowEndSeconds,
		}), nil
	}

	data, err := os.ReadFile(cfg.DemandPath)
	if err != nil {
		return nil, err
	}
	var raw []demand.RawAgent
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return demand.Load(net, raw)
}
