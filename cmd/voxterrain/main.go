// Command-line tool for voxel terrain: meshes MagicaVoxel models and exercises the
// voxel storage and editing layers.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/janelia-flyem/voxterrain"
	"github.com/janelia-flyem/voxterrain/dvid"
	"github.com/janelia-flyem/voxterrain/server"
)

const version = "0.1.0"

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")

	// Path to the TOML configuration.
	configFile = flag.String("config", "", "")

	// Override of the configured mesher.
	mesherType = flag.String("mesher", "", "")

	// Edge of the blocks a model is split into before meshing.  0 meshes the model whole.
	blockSize = flag.Int("block", 0, "")

	// Number of logical CPUs to use.
	useCPU = flag.Int("numcpu", 0, "")

	// Address serving prometheus metrics, overriding the configuration.
	metricsAddress = flag.String("metrics", "", "")
)

const helpMessage = `
voxterrain meshes voxel models and exercises voxel terrain storage

Usage: voxterrain [options] <command>

      -config     =string   TOML configuration file.
      -mesher     =string   Mesher to use: "blocky" or "cubes".
      -block      =number   Split models into blocks of this edge before meshing.
      -numcpu     =number   Number of logical CPUs to use.
      -metrics    =string   Address serving prometheus metrics, e.g. "localhost:9100".
      -verbose    (flag)    Run in verbose mode.
  -h, -help       (flag)    Show help message

Commands:

	about
	help
	mesh  <file.vox> <file.glb> [model index]
	stats <file.vox> [model index]
	edit-demo [sphere center x,y,z]
`

var usage = func() {
	fmt.Printf(helpMessage)
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() >= 1 && strings.ToLower(flag.Args()[0]) == "help" {
		*showHelp = true
	}
	if *runVerbose {
		dvid.Verbose = true
		dvid.SetLogMode(dvid.DebugMode)
	}
	if *showHelp || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}
	if *useCPU != 0 {
		runtime.GOMAXPROCS(*useCPU)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if err := cfg.Logging.SetLogger(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if *runVerbose {
		dvid.SetLogMode(dvid.DebugMode)
	}
	serveMetrics(cfg.Metrics.Address)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	vctx := voxterrain.NewFromConfig(cfg)
	err = DoCommand(ctx, vctx, cfg, flag.Args())
	if shutdownErr := vctx.Shutdown(); shutdownErr != nil {
		err = errors.Join(err, shutdownErr)
	}
	dvid.Shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func loadConfig() (*server.Config, error) {
	var cfg *server.Config
	if *configFile == "" {
		cfg = server.DefaultConfig()
	} else {
		var err error
		if cfg, err = server.LoadConfig(*configFile); err != nil {
			return nil, err
		}
	}
	if *mesherType != "" {
		cfg.Mesher.Type = *mesherType
	}
	if *metricsAddress != "" {
		cfg.Metrics.Address = *metricsAddress
	}
	if *useCPU != 0 {
		cfg.Mesher.Workers = *useCPU
	}
	return cfg, cfg.Validate()
}

func serveMetrics(address string) {
	if address == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		dvid.Infof("Serving metrics on http://%s/metrics\n", address)
		if err := http.ListenAndServe(address, mux); err != nil {
			dvid.Errorf("Metrics server stopped: %v\n", err)
		}
	}()
}

// DoCommand serves as a switchboard for commands.
func DoCommand(ctx context.Context, vctx *voxterrain.Context, cfg *server.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("Blank command!")
	}
	switch args[0] {
	case "about":
		fmt.Printf("voxterrain %s (%s, %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Printf("Mesher: %s, workers: %d\n", cfg.Mesher.Type, cfg.Mesher.Workers)
		return nil
	case "mesh":
		if len(args) < 3 {
			return fmt.Errorf("mesh needs an input .vox and an output .glb file")
		}
		index, err := modelIndex(args, 3)
		if err != nil {
			return err
		}
		return DoMesh(ctx, vctx, cfg, args[1], args[2], index)
	case "stats":
		if len(args) < 2 {
			return fmt.Errorf("stats needs an input .vox file")
		}
		index, err := modelIndex(args, 2)
		if err != nil {
			return err
		}
		return DoStats(vctx, args[1], index)
	case "edit-demo":
		center := dvid.Vector3d{16, 10, 16}
		if len(args) > 1 {
			var err error
			if center, err = dvid.StringToVector3d(args[1], ","); err != nil {
				return fmt.Errorf("bad sphere center %q: %v", args[1], err)
			}
		}
		return DoEditDemo(vctx, center)
	default:
		return fmt.Errorf("unknown command %q, try \"voxterrain help\"", args[0])
	}
}

func modelIndex(args []string, pos int) (int, error) {
	if len(args) <= pos {
		return 0, nil
	}
	index, err := strconv.Atoi(args[pos])
	if err != nil {
		return 0, fmt.Errorf("bad model index %q: %v", args[pos], err)
	}
	return index, nil
}
