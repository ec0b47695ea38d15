// Package cmd implements the node's CLI entrypoint: flag/env/config
// parsing and process wiring via cobra and viper.
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ledgerforge/node/internal/httpapi"
	"github.com/ledgerforge/node/internal/node"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vrecan/death/v3"
	"go.uber.org/zap"
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var (
		index      int
		ips        []string
		difficulty int
		p2pBase    int
		apiBase    int
		chainFile  string
		dataDir    string
	)

	cmd := &cobra.Command{
		Use:   "node",
		Short: "Run a peer-to-peer UTXO blockchain node",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			v.SetEnvPrefix("NODE")
			v.AutomaticEnv()
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath(".")
			_ = v.ReadInConfig() // config file is optional

			bindFlag(v, cmd, "index")
			bindFlag(v, cmd, "ips")
			bindFlag(v, cmd, "difficulty")
			bindFlag(v, cmd, "p2p-port")
			bindFlag(v, cmd, "api-port")
			bindFlag(v, cmd, "chain-file")
			bindFlag(v, cmd, "data-dir")

			return run(runConfig{
				Index:      v.GetInt("index"),
				IPs:        v.GetStringSlice("ips"),
				Difficulty: v.GetInt("difficulty"),
				P2PBase:    v.GetInt("p2p-port"),
				APIBase:    v.GetInt("api-port"),
				ChainFile:  v.GetString("chain-file"),
				DataDir:    v.GetString("data-dir"),
			})
		},
	}

	cmd.Flags().IntVar(&index, "index", 0, "index of this node within --ips")
	cmd.Flags().StringArrayVar(&ips, "ips", nil, "hostnames/IPs of every node in the network")
	cmd.Flags().IntVar(&difficulty, "difficulty", 4, "proof-of-work difficulty (leading hex zeros)")
	cmd.Flags().IntVar(&p2pBase, "p2p-port", 5000, "base P2P port; this node listens on base+index")
	cmd.Flags().IntVar(&apiBase, "api-port", 6000, "base HTTP API port; this node listens on base+index")
	cmd.Flags().StringVar(&chainFile, "chain-file", "", "path to the chain persistence file (default: <data-dir>/chain_<node_id>.json)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "./data", "directory for chain file and peer store")

	cmd.MarkFlagRequired("ips")

	return cmd
}

func bindFlag(v *viper.Viper, cmd *cobra.Command, name string) {
	if f := cmd.Flags().Lookup(name); f != nil {
		v.BindPFlag(name, f)
	}
}

type runConfig struct {
	Index      int
	IPs        []string
	Difficulty int
	P2PBase    int
	APIBase    int
	ChainFile  string
	DataDir    string
}

func run(cfg runConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Sugar()

	if cfg.Index < 0 || cfg.Index >= len(cfg.IPs) {
		return fmt.Errorf("index %d out of bounds for %d ips", cfg.Index, len(cfg.IPs))
	}

	nodeID := fmt.Sprintf("node-%d-%s", cfg.Index, cfg.IPs[cfg.Index])
	p2pPort := cfg.P2PBase + cfg.Index
	apiPort := cfg.APIBase + cfg.Index

	chainFile := cfg.ChainFile
	if chainFile == "" {
		chainFile = filepath.Join(cfg.DataDir, fmt.Sprintf("chain_%s.json", nodeID))
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}

	var bootstrap []node.PeerAddr
	for i, ip := range cfg.IPs {
		if i == cfg.Index {
			continue
		}
		bootstrap = append(bootstrap, node.PeerAddr{Host: ip, Port: cfg.P2PBase + i})
	}

	n, err := node.New(node.Config{
		NodeID:         nodeID,
		Host:           "0.0.0.0",
		P2PPort:        p2pPort,
		Difficulty:     cfg.Difficulty,
		ChainFilePath:  chainFile,
		PeerStoreDir:   filepath.Join(cfg.DataDir, "peerstore_"+nodeID),
		BootstrapPeers: bootstrap,
	}, log.Named(nodeID))
	if err != nil {
		return err
	}

	n.SetMetrics(node.NewMetrics(prometheus.DefaultRegisterer))

	if err := n.Start(); err != nil {
		return err
	}
	time.Sleep(2 * time.Second)
	n.StartMining()

	statusStop := make(chan struct{})
	go n.RunStatusLogger(statusStop)

	server := httpapi.New(n, log.Named("httpapi"))
	httpSrv := &http.Server{Addr: fmt.Sprintf("0.0.0.0:%d", apiPort), Handler: server.Handler()}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("http server error", "error", err)
		}
	}()

	log.Infow("node running", "id", nodeID, "p2p_port", p2pPort, "api_port", apiPort)

	dm := death.NewDeath(syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	dm.WaitForDeathWithFunc(func() {
		log.Infow("shutting down", "id", nodeID)
		close(statusStop)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(ctx)
		n.Stop()
	})

	return nil
}
