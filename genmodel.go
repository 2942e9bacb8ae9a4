package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"pixelforge/core"
	"pixelforge/inference"
)

// runGenModel writes a model file with deterministic default weights: a
// center-weighted refinement kernel for super-resolution, a uniform gray
// projection for segmentation. The files are real loadable models, which
// makes them useful for development setups and tests. The command needs no
// configuration or logger, so it runs before either exists.
func runGenModel(args []string) int {
	fs := flag.NewFlagSet("genmodel", flag.ContinueOnError)
	kindFlag := fs.String("kind", "", `model kind: "sr" or "seg"`)
	outFlag := fs.String("out", "", "output file path")
	scale := fs.Int("scale", 4, "super-resolution magnification factor (2-8)")
	kernel := fs.Int("kernel", 3, "super-resolution refinement kernel size (odd, 1-9)")
	maxDim := fs.Int("maxdim", 4096, "largest accepted input dimension (0 = unlimited)")
	channels := fs.Int("channels", 3, "channel count the model is declared for (1-4)")
	if err := fs.Parse(args); err != nil {
		return core.ExitCodeError
	}

	if *outFlag == "" {
		fmt.Fprintln(os.Stderr, "genmodel: -out is required")
		fs.Usage()
		return core.ExitCodeError
	}

	var header inference.Header
	switch *kindFlag {
	case "sr":
		header = inference.Header{
			Kind:     inference.KindSuperResolution,
			Scale:    *scale,
			Channels: *channels,
			Kernel:   *kernel,
			MaxDim:   *maxDim,
		}
	case "seg":
		header = inference.Header{
			Kind:     inference.KindSegmentation,
			Channels: *channels,
			MaxDim:   *maxDim,
		}
	default:
		fmt.Fprintf(os.Stderr, "genmodel: -kind must be \"sr\" or \"seg\", got %q\n", *kindFlag)
		return core.ExitCodeError
	}

	weights := inference.DefaultWeights(header.Kind, header.Kernel)

	if dir := filepath.Dir(*outFlag); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "genmodel: %v\n", err)
			return core.ExitCodeError
		}
	}

	if err := inference.WriteModelFile(*outFlag, header, weights); err != nil {
		fmt.Fprintf(os.Stderr, "genmodel: %v\n", err)
		return core.ExitCodeError
	}

	if header.Kind == inference.KindSuperResolution {
		fmt.Printf("Wrote %dx super-resolution model (kernel %d) to %s\n",
			header.Scale, header.Kernel, *outFlag)
	} else {
		fmt.Printf("Wrote segmentation model to %s\n", *outFlag)
	}
	return core.ExitCodeSuccess
}
