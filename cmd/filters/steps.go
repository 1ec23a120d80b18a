package main

import (
	"maps"
	"slices"

	"github.com/gogpu/filters"
)

type stepParams struct {
	boxRadius uint32
	sigma     float32
}

// steps maps a -filter name to the operation it appends.
var steps = map[string]func(*filters.Operation, stepParams) *filters.Operation{
	"grayscale": func(op *filters.Operation, _ stepParams) *filters.Operation { return op.Grayscale() },
	"inverse":   func(op *filters.Operation, _ stepParams) *filters.Operation { return op.Inverse() },
	"hflip":     func(op *filters.Operation, _ stepParams) *filters.Operation { return op.HFlip() },
	"vflip":     func(op *filters.Operation, _ stepParams) *filters.Operation { return op.VFlip() },
	"half": func(op *filters.Operation, _ stepParams) *filters.Operation {
		w, h := op.Dimensions()
		return op.Resize(w/2, h/2, filters.ResizeLinear)
	},
	"boxblur": func(op *filters.Operation, p stepParams) *filters.Operation {
		return op.BoxBlur(p.boxRadius)
	},
	"gaussianblur": func(op *filters.Operation, p stepParams) *filters.Operation {
		return op.GaussianBlur(p.sigma)
	},
}

func stepNames() []string {
	return slices.Sorted(maps.Keys(steps))
}
