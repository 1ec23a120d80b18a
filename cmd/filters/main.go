// Command filters applies a chain of image filters on the GPU.
//
// Usage:
//
//	filters -i photo.png -filter grayscale,boxblur -filter hflip
//
// The result is written next to the input as photo_grayscale_boxblur_hflip.png
// unless -o names another file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/filters"
	"github.com/gogpu/filters/backend"

	// Register the compute backends.
	_ "github.com/gogpu/filters/backend/reference"
	_ "github.com/gogpu/filters/backend/wgpu"
)

// filterList collects -filter flags. Each flag may hold a comma-separated
// list.
type filterList []string

func (f *filterList) String() string {
	return strings.Join(*f, ",")
}

func (f *filterList) Set(v string) error {
	for _, name := range strings.Split(v, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := steps[name]; !ok {
			return fmt.Errorf("unknown filter %q (known: %s)", name, strings.Join(stepNames(), ", "))
		}
		*f = append(*f, name)
	}
	return nil
}

type config struct {
	input     string
	output    string
	filters   filterList
	boxRadius uint
	sigma     float64
	compress  bool
	backend   string
	verbose   bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.input, "input", "", "input image (png, jpeg, bmp, tiff, webp)")
	flag.StringVar(&cfg.input, "i", "", "shorthand for -input")
	flag.StringVar(&cfg.output, "output", "", "output image (default: <input>_<filters>.<ext>)")
	flag.StringVar(&cfg.output, "o", "", "shorthand for -output")
	flag.Var(&cfg.filters, "filter", "filters to apply, in order; repeatable or comma-separated")
	flag.UintVar(&cfg.boxRadius, "box-radius", 15, "radius of the boxblur filter")
	flag.Float64Var(&cfg.sigma, "sigma", 3.0, "standard deviation of the gaussianblur filter")
	flag.BoolVar(&cfg.compress, "compress", false, "encode png output with best compression")
	flag.StringVar(&cfg.backend, "backend", backend.Default,
		"compute backend ("+strings.Join(backend.Available(), ", ")+")")
	flag.BoolVar(&cfg.verbose, "v", false, "enable debug logging")
	flag.Parse()

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("filters: %v", err)
	}
}

func run(ctx context.Context, cfg config) error {
	if cfg.input == "" {
		return fmt.Errorf("missing -input")
	}
	if len(cfg.filters) == 0 {
		return fmt.Errorf("no -filter given")
	}
	if cfg.verbose {
		filters.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	img, err := readImage(cfg.input)
	if err != nil {
		return err
	}
	output := cfg.output
	if output == "" {
		output = outputPath(cfg.input, cfg.filters)
	}
	encode, err := encoderFor(output, cfg.compress)
	if err != nil {
		return err
	}

	dev, err := backend.Open(ctx, cfg.backend)
	if err != nil {
		return err
	}
	fc, err := filters.NewComputeContext(dev, filters.WithOwnedDevice())
	if err != nil {
		_ = dev.Close()
		return err
	}
	defer fc.Close()

	params := stepParams{boxRadius: uint32(cfg.boxRadius), sigma: float32(cfg.sigma)}
	start := time.Now()
	op := filters.NewOperation(fc, img)
	for _, name := range cfg.filters {
		op = steps[name](op, params)
	}
	result, err := op.Execute(ctx)
	if err != nil {
		return err
	}
	p := message.NewPrinter(language.English)
	p.Printf("Took %d ms to apply the filter to the image\n", time.Since(start).Milliseconds())

	return writeImage(output, result, encode)
}
