//go:build !(js && wasm)

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/voxelsplace/repacker/meshio"
	"github.com/voxelsplace/repacker/repack"
)

func usage() {
	fmt.Println("Usage: repacktool <command> [flags] [args]")
	fmt.Println("Commands:")
	fmt.Println("  glb2rpk [flags] input.glb output.rpk      (pack every indexed triangle mesh into .rpk)")
	fmt.Println("  rpk2glb input.rpk output.glb              (decode .rpk back to .glb, vertices in packed order)")
	fmt.Println("  rpkinfo input.rpk                         (print and verify packed streams)")
	fmt.Println("  repackdir [flags] input_dir output_dir    (convert every .glb in a directory)")
	fmt.Println("  gensynth [-seed n] [-size n] [-jump p] <amount> <output_dir>   (generate synthetic heightfield .glb files)")
	fmt.Println("Pack flags: -block 64 -comp zstd|zlib|lz4|none -layout packed30|raw32 -sort -split 65000 -workers 4")
	fmt.Println("Set LOG_LEVEL=debug|info|warn|error to control logging.")
}

func setupLogging() {
	level := slog.LevelInfo
	if s, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if err := level.UnmarshalText([]byte(s)); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// packFlags registers the conversion flags on fs and returns a function resolving them to Options.
func packFlags(fs *flag.FlagSet) func() (meshio.Options, error) {
	def := meshio.DefaultOptions()
	block := fs.Int("block", def.BlockSize, "vertices per anchored block")
	comp := fs.String("comp", def.Compression.String(), "container compression: none, zlib, zstd, lz4")
	layout := fs.String("layout", def.Layout.String(), "word layout: raw32 or packed30")
	sort := fs.Bool("sort", def.SpatialSort, "Morton-order vertices before packing")
	split := fs.Int("split", def.SplitLimit, "split meshes above this many vertices (0 disables)")
	workers := fs.Int("workers", def.Workers, "files converted in parallel by repackdir")
	return func() (meshio.Options, error) {
		opts := meshio.Options{BlockSize: *block, SpatialSort: *sort, SplitLimit: *split, Workers: *workers}
		var err error
		if opts.Compression, err = repack.ParseCompression(*comp); err != nil {
			return opts, err
		}
		if opts.Layout, err = repack.ParseWordLayout(*layout); err != nil {
			return opts, err
		}
		if opts.BlockSize <= 0 {
			return opts, repack.ErrInvalidBlockSize
		}
		return opts, nil
	}
}

func fail(err error) {
	fmt.Println("Error:", err)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	setupLogging()

	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	fs.Usage = usage
	switch os.Args[1] {
	case "glb2rpk":
		resolve := packFlags(fs)
		_ = fs.Parse(os.Args[2:])
		if fs.NArg() != 2 {
			usage()
			os.Exit(1)
		}
		opts, err := resolve()
		if err != nil {
			fail(err)
		}
		if err := meshio.RunGLB2RPK(fs.Arg(0), fs.Arg(1), opts); err != nil {
			fail(err)
		}
	case "rpk2glb":
		if len(os.Args) != 4 {
			usage()
			os.Exit(1)
		}
		if err := meshio.RunRPK2GLB(os.Args[2], os.Args[3]); err != nil {
			fail(err)
		}
	case "rpkinfo":
		if len(os.Args) != 3 {
			usage()
			os.Exit(1)
		}
		if err := meshio.RunInfo(os.Args[2], os.Stdout); err != nil {
			fail(err)
		}
	case "repackdir":
		resolve := packFlags(fs)
		_ = fs.Parse(os.Args[2:])
		if fs.NArg() != 2 {
			usage()
			os.Exit(1)
		}
		opts, err := resolve()
		if err != nil {
			fail(err)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := meshio.RunRepackDir(ctx, fs.Arg(0), fs.Arg(1), opts); err != nil {
			fail(err)
		}
	case "gensynth":
		def := meshio.DefaultSynthOptions()
		seed := fs.Int64("seed", 1, "random seed")
		size := fs.Int("size", def.Width, "vertices per side")
		jump := fs.Float64("jump", def.JumpChance, "probability of a spike that overflows its block")
		_ = fs.Parse(os.Args[2:])
		if fs.NArg() != 2 {
			usage()
			os.Exit(1)
		}
		var amount int
		if _, err := fmt.Sscan(fs.Arg(0), &amount); err != nil {
			fail(err)
		}
		opts := def
		opts.Width, opts.Depth, opts.JumpChance = *size, *size, *jump
		if err := meshio.RunGenSynth(opts, amount, *seed, fs.Arg(1)); err != nil {
			fail(err)
		}
	default:
		usage()
		os.Exit(1)
	}

	fmt.Println("Operation completed!")
}
