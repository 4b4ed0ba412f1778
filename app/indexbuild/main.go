// Command indexbuild builds a class-balanced sample index from one or more
// image dataset roots, prints a summary, and can persist the index and fit
// normalization statistics.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/tsawler/go-imageset/dataset"
	"github.com/tsawler/go-imageset/decode"
	"github.com/tsawler/go-imageset/normalize"
	"github.com/tsawler/go-imageset/sampler"
	"github.com/tsawler/go-imageset/scan"
	"github.com/tsawler/go-imageset/transform"
)

func main() {
	var (
		roots        = flag.String("roots", "", "comma-separated dataset root directories")
		excludeFiles = flag.String("exclude-files", "", "glob of file names to skip")
		excludeDirs  = flag.String("exclude-dirs", "", "glob of directory paths to skip")
		useFind      = flag.Bool("find", false, "enumerate with find(1) instead of a native walk")
		out          = flag.String("out", "", "write the built index to this file")
		classInfo    = flag.String("class-info", "", "attach a class-information artifact")
		fit          = flag.Bool("fit", false, "fit normalization stats after building")
		seed         = flag.Int64("seed", 1, "sampler seed used with -fit")
		height       = flag.Int("height", 224, "crop height")
		width        = flag.Int("width", 224, "crop width")
		channels     = flag.Int("channels", 3, "sample channels (1 or 3)")
	)
	flag.Parse()

	if *roots == "" {
		log.Fatal("indexbuild: -roots is required")
	}

	var enum scan.Enumerator
	if *useFind {
		ft := &scan.FindTool{}
		if !ft.Available() {
			log.Fatal("indexbuild: -find requested but find(1) is not on PATH")
		}
		enum = ft
	}

	var bar *progressbar.ProgressBar
	cat, ps, err := dataset.Build(dataset.Config{
		Roots:        strings.Split(*roots, ","),
		ExcludeFiles: *excludeFiles,
		ExcludeDirs:  *excludeDirs,
		Enumerator:   enum,
		Progress: func(done, total, paths int) {
			if bar == nil {
				bar = progressbar.Default(int64(total), "scanning classes")
			}
			_ = bar.Set(done)
			bar.Describe(fmt.Sprintf("scanning classes (%s paths)", humanize.Comma(int64(paths))))
		},
	})
	if err != nil {
		log.Fatalf("indexbuild: build failed: %v", err)
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	if *classInfo != "" {
		info, err := dataset.LoadClassInfo(*classInfo)
		if err != nil {
			log.Fatalf("indexbuild: %v", err)
		}
		cat.AttachInfo(info)
	}

	fmt.Println(ps)
	fmt.Printf("classes: %d\n", cat.NumClasses())
	for name, count := range cat.Distribution(ps) {
		fmt.Printf("  %s: %s\n", name, humanize.Comma(int64(count)))
	}

	if *out != "" {
		if err := ps.Save(*out); err != nil {
			log.Fatalf("indexbuild: saving index: %v", err)
		}
		fmt.Printf("index written to %s\n", *out)
	}

	if *fit {
		pipe, err := transform.New(&decode.ImageDecoder{}, transform.Config{
			Shape:           transform.Shape{Channels: *channels, Height: *height, Width: *width},
			SamplesPerImage: 2,
			Variant:         transform.TrainCenterFirst,
		})
		if err != nil {
			log.Fatalf("indexbuild: %v", err)
		}
		s := sampler.New(ps, pipe, sampler.WithSeed(*seed))
		var n normalize.Normalizer
		stats, err := n.Fit(s, normalize.FitOptions{})
		if err != nil {
			log.Fatalf("indexbuild: fitting stats: %v", err)
		}
		fmt.Printf("mean: %v\nstd:  %v\n", stats.Mean, stats.Std)
	}
}
