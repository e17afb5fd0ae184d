package pipeline

import (
	"errors"
	"strconv"
	"strings"

	"github.com/seantiz/pipebench/internal/model"
)

// streamPlaceholder is replaced with the global stream index so that element
// names stay unique when one definition is instantiated many times.
const streamPlaceholder = "{{stream}}"

// Command is a ready-to-exec pipeline invocation.
type Command struct {
	Path string
	Args []string
	Env  []string
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// BuildCommand combines every stream of every spec into one gst-launch
// invocation. Specs with zero streams contribute nothing.
func (c *Catalog) BuildCommand(specs []model.PipelinePerformanceSpec) (Command, error) {
	args := []string{"-e"}
	stream := 0
	for _, spec := range specs {
		if spec.Streams < 0 {
			return Command{}, errors.New("stream count must not be negative")
		}
		def, err := c.Lookup(spec.ID)
		if err != nil {
			return Command{}, err
		}
		for range spec.Streams {
			launch := strings.ReplaceAll(def.LaunchString, streamPlaceholder, strconv.Itoa(stream))
			args = append(args, strings.Fields(launch)...)
			stream++
		}
	}
	if stream == 0 {
		return Command{}, errors.New("at least one stream must be specified to build a pipeline")
	}

	return Command{Path: c.gstLaunch, Args: args}, nil
}

// Describe fills in name and version from the catalog for each spec. Unknown
// ids are left as given.
func (c *Catalog) Describe(specs []model.PipelinePerformanceSpec) []model.PipelinePerformanceSpec {
	out := make([]model.PipelinePerformanceSpec, len(specs))
	for i, spec := range specs {
		out[i] = spec
		if def, err := c.Lookup(spec.ID); err == nil {
			out[i].Name = def.Name
			out[i].Version = def.Version
		}
	}
	return out
}
