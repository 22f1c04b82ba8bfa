package filter

import (
	"fmt"

	"github.com/robert-malhotra/h5records/internal/message"
)

// Pipeline undoes the filters of a dataset.
type Pipeline struct {
	filters []Filter
}

// NewPipeline builds the pipeline for fp; a nil message yields an empty
// pipeline.
func NewPipeline(fp *message.FilterPipeline) (*Pipeline, error) {
	p := &Pipeline{}
	if fp == nil {
		return p, nil
	}
	for _, info := range fp.Filters {
		f, err := New(info)
		if err != nil {
			return nil, err
		}
		p.filters = append(p.filters, f)
	}
	return p, nil
}

// Decode undoes the filters in reverse order. Bit i of mask set means
// filter i was not applied to this chunk.
func (p *Pipeline) Decode(in []byte, mask uint32) ([]byte, error) {
	data := in
	for i := len(p.filters) - 1; i >= 0; i-- {
		if i < 32 && mask&(1<<uint(i)) != 0 {
			continue
		}
		out, err := p.filters[i].Decode(data)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", p.filters[i].ID(), err)
		}
		data = out
	}
	return data, nil
}

// Len returns the number of filters.
func (p *Pipeline) Len() int { return len(p.filters) }
