// Command-line driver that stages volumes, box meshes and stored containers into a
// structure and writes it out as tiles.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/janelia-flyem/schemgen/pipeline"
	"github.com/janelia-flyem/schemgen/schemgen"
	"github.com/janelia-flyem/schemgen/sdf"
	"github.com/janelia-flyem/schemgen/storage"
	"github.com/janelia-flyem/schemgen/tiles"
	"github.com/janelia-flyem/schemgen/volume"

	_ "github.com/janelia-flyem/schemgen/storage/badger"
)

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")

	// TOML configuration file.  A "config=" setting in the command overrides it.
	configFile = flag.String("config", "", "")

	// Profile CPU usage using standard gotest system.
	cpuprofile = flag.String("cpuprofile", "", "")

	// Profile memory usage using standard gotest system.
	memprofile = flag.String("memprofile", "", "")

	// Number of logical CPUs to use.
	useCPU = flag.Int("numcpu", 0, "")
)

const helpMessage = `
schemgen converts voxel volumes and meshes into tiled block structures

Usage: schemgen [options] <command>

      -config     =string   TOML configuration file.
      -cpuprofile =string   Write CPU profile to this file.
      -memprofile =string   Write memory profile to this file on ctrl-C.
      -numcpu     =number   Number of logical CPUs to use.
      -verbose    (flag)    Run in verbose mode.
  -h, -help       (flag)    Show help message

Commands:

	about
	help
	raw   <raw file> shape=<depth>,<rows>,<cols>[,<channels>] block=<ns:name[props]>
	      [true=<value>] [out=<url>] [base=<name>] [store=<alias>]
	shape box <x0,y0,z0> <x1,y1,z1> block=<ns:name[props]>
	      [out=<url>] [base=<name>] [store=<alias>]
	tiles store=<alias> [out=<url>] [base=<name>]
	split store=<alias> [out=<url>] [base=<name>]
	info  store=<alias>

Settings common to commands that write tiles:

	config=<file>    TOML configuration, overriding -config
	maxsize=<n>      Maximum tile edge in voxels (default 48)
	format=<name>    Tile format: nbt or msgpack

Output locations may be local directories or file://, mem://, gs:// or s3:// URLs.
Store aliases refer to [store.<alias>] sections of the configuration.
`

var usage = func() {
	fmt.Print(helpMessage)
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() >= 1 && strings.ToLower(flag.Args()[0]) == "help" {
		*showHelp = true
	}
	if *showHelp || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	if *useCPU != 0 {
		schemgen.NumCPU = *useCPU
	}
	runtime.GOMAXPROCS(schemgen.NumCPU)

	// Capture ctrl+c and other interrupts.  Running operations are cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	stopSig := make(chan os.Signal, 1)
	go func() {
		for sig := range stopSig {
			log.Printf("Stop signal captured: %q.  Shutting down...\n", sig)
			if *memprofile != "" {
				log.Printf("Storing memory profiling to %s...\n", *memprofile)
				f, err := os.Create(*memprofile)
				if err != nil {
					log.Fatal(err)
				}
				pprof.WriteHeapProfile(f)
				f.Close()
			}
			cancel()
		}
	}()
	signal.Notify(stopSig, os.Interrupt, syscall.SIGTERM)

	command := schemgen.Command(flag.Args())
	err := DoCommand(ctx, command)
	cancel()
	schemgen.Shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// DoCommand serves as a switchboard for commands.
func DoCommand(ctx context.Context, cmd schemgen.Command) error {
	if len(cmd) == 0 {
		return fmt.Errorf("blank command")
	}
	switch cmd.Name() {
	case "about":
		fmt.Printf("schemgen tile format %s\n", tiles.TileFormatVersion)
		fmt.Printf("storage engines: %s\n", storage.EnginesAvailable())
		return nil
	case "raw":
		return DoRaw(ctx, cmd)
	case "shape":
		return DoShape(ctx, cmd)
	case "tiles":
		return DoTiles(ctx, cmd)
	case "split":
		return DoSplit(ctx, cmd)
	case "info":
		return DoInfo(cmd)
	default:
		return fmt.Errorf("unknown command %q, try 'schemgen help'", cmd.Name())
	}
}

// loadConfig returns the configuration named by the command or the -config flag, with
// command settings applied on top.
func loadConfig(cmd schemgen.Command) (*pipeline.Config, error) {
	filename := *configFile
	if setting, found := cmd.Setting(schemgen.KeyConfigFile); found {
		filename = setting
	}
	cfg := pipeline.DefaultConfig()
	if filename != "" {
		var err error
		if cfg, err = pipeline.LoadConfig(filename); err != nil {
			return nil, err
		}
	}
	if *runVerbose {
		cfg.Logging.Verbose = true
	}
	cfg.Logging.SetLogger()

	if out, found := cmd.Setting(schemgen.KeyOutput); found {
		cfg.Output.URL = out
	}
	if base, found := cmd.Setting(schemgen.KeyBaseName); found {
		cfg.Output.BaseName = base
	}
	if format, found := cmd.Setting(schemgen.KeyFormat); found {
		cfg.Tiles.Format = format
	}
	if s, found := cmd.Setting(schemgen.KeyMaxSize); found {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("bad %s setting %q: %w", schemgen.KeyMaxSize, s, schemgen.ErrInvalidArgument)
		}
		cfg.Tiles.MaxSize = n
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finish saves the staged structure to a store and writes tiles, as requested.
func finish(ctx context.Context, cmd schemgen.Command, p *pipeline.Pipeline) error {
	fmt.Println(p.Summary())
	alias, hasStore := cmd.Setting(schemgen.KeyStore)
	if hasStore {
		m, err := p.Save(alias)
		if err != nil {
			return err
		}
		fmt.Printf("Saved structure to store %q: %s\n", alias, m)
	}
	if p.Config().Output.URL == "" {
		if hasStore {
			return nil
		}
		return fmt.Errorf("nothing to write: set %s=<url>, %s=<alias> or [output] url", schemgen.KeyOutput, schemgen.KeyStore)
	}
	return writeTiles(ctx, p, false)
}

func writeTiles(ctx context.Context, p *pipeline.Pipeline, split bool) error {
	sink, err := p.OpenSink(ctx)
	if err != nil {
		return err
	}
	defer sink.Close()
	if split {
		stats, err := p.WriteSplit(ctx, sink, "")
		if err != nil {
			return err
		}
		for name, st := range stats {
			fmt.Printf("%s: %d tiles, %d voxels, %d bytes\n", name, st.Tiles, st.Voxels, st.Bytes)
		}
		return nil
	}
	st, err := p.WriteTiles(ctx, sink, "")
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d tiles, %d voxels, %d bytes to %s\n", st.Tiles, st.Voxels, st.Bytes, sink)
	return nil
}

func parseShape(s string) ([]int, error) {
	var shape []int
	for _, elem := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(elem))
		if err != nil {
			return nil, fmt.Errorf("bad shape %q: %w", s, schemgen.ErrInvalidArgument)
		}
		shape = append(shape, n)
	}
	return shape, nil
}

func requireSetting(cmd schemgen.Command, key string) (string, error) {
	value, found := cmd.Setting(key)
	if !found || value == "" {
		return "", fmt.Errorf("%s command requires %s=<value>: %w", cmd.Name(), key, schemgen.ErrInvalidArgument)
	}
	return value, nil
}

// DoRaw performs the "raw" command, adding a raw uint8 volume as a layer.
func DoRaw(ctx context.Context, cmd schemgen.Command) error {
	var filename string
	cmd.CommandArgs(&filename)
	if filename == "" {
		return fmt.Errorf("raw command must be followed by the path to a raw volume")
	}
	shapeStr, err := requireSetting(cmd, schemgen.KeyShape)
	if err != nil {
		return err
	}
	shape, err := parseShape(shapeStr)
	if err != nil {
		return err
	}
	block, err := requireSetting(cmd, schemgen.KeyBlock)
	if err != nil {
		return err
	}
	var trueValue *float64
	if s, found := cmd.Setting(schemgen.KeyTrueValue); found {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("bad %s setting %q: %w", schemgen.KeyTrueValue, s, schemgen.ErrInvalidArgument)
		}
		trueValue = &v
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	a, err := volume.ReadRaw(f, shape)
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	if err := p.AddVolume(a, block, trueValue); err != nil {
		return err
	}
	return finish(ctx, cmd, p)
}

// DoShape performs the "shape" command, voxelizing a primitive mesh as a layer.
func DoShape(ctx context.Context, cmd schemgen.Command) error {
	var kind, minStr, maxStr string
	cmd.CommandArgs(&kind, &minStr, &maxStr)
	if kind != "box" {
		return fmt.Errorf("shape command supports only 'box', got %q", kind)
	}
	min, err := schemgen.StringToPoint3d(minStr, ",")
	if err != nil {
		return err
	}
	max, err := schemgen.StringToPoint3d(maxStr, ",")
	if err != nil {
		return err
	}
	block, err := requireSetting(cmd, schemgen.KeyBlock)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	box := sdf.Box(
		r3.Vec{X: float64(min[0]), Y: float64(min[1]), Z: float64(min[2])},
		r3.Vec{X: float64(max[0]), Y: float64(max[1]), Z: float64(max[2])},
	)
	if err := p.AddMesh(ctx, box, block); err != nil {
		return err
	}
	return finish(ctx, cmd, p)
}

func importStore(cmd schemgen.Command) (*pipeline.Pipeline, error) {
	alias, err := requireSetting(cmd, schemgen.KeyStore)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	p, err := pipeline.New(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := p.Import(alias); err != nil {
		return nil, err
	}
	return p, nil
}

// DoTiles performs the "tiles" command, writing a stored structure as tiles.
func DoTiles(ctx context.Context, cmd schemgen.Command) error {
	p, err := importStore(cmd)
	if err != nil {
		return err
	}
	if p.Config().Output.URL == "" {
		return fmt.Errorf("tiles command requires %s=<url> or [output] url", schemgen.KeyOutput)
	}
	return writeTiles(ctx, p, false)
}

// DoSplit performs the "split" command, writing one tile set per block type.
func DoSplit(ctx context.Context, cmd schemgen.Command) error {
	p, err := importStore(cmd)
	if err != nil {
		return err
	}
	if p.Config().Output.URL == "" {
		return fmt.Errorf("split command requires %s=<url> or [output] url", schemgen.KeyOutput)
	}
	return writeTiles(ctx, p, true)
}

// DoInfo performs the "info" command, describing a stored structure.
func DoInfo(cmd schemgen.Command) error {
	p, err := importStore(cmd)
	if err != nil {
		return err
	}
	fmt.Println(p.Summary())
	return nil
}
