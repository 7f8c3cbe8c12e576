package rpmsg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlPlatformSpec is the on-disk descriptor format for YAMLPlatform,
// naming the same keys as the platform configuration surface of §6.
type yamlPlatformSpec struct {
	SegmentPath string `yaml:"segment_path"`
	BufSize     uint64 `yaml:"buf_sz"`
	BufNum      uint64 `yaml:"buf_num"`
	SimBase     uint64 `yaml:"sim_base"`
	Channels    []struct {
		Name string `yaml:"name"`
		Src  uint32 `yaml:"src"`
		Dst  uint32 `yaml:"dst"`
	} `yaml:"hc_channels"`
}

// YAMLPlatform loads the BUF_ADDR/BUF_NUM/BUF_SZ/SIM_BASE/HC_CHANNELS
// platform keys from a YAML descriptor and backs the region with a real
// memory-mapped file, for use by operator tooling (cmd/rpmsgctl) rather than
// in-process tests.
type YAMLPlatform struct {
	spec   yamlPlatformSpec
	seg    *Segment
	closer func() error
}

// LoadYAMLPlatform parses the descriptor at path and memory-maps its segment
// file, creating it if necessary.
func LoadYAMLPlatform(path string) (*YAMLPlatform, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rpmsg: read platform descriptor: %w", err)
	}
	var spec yamlPlatformSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("rpmsg: parse platform descriptor: %w", err)
	}
	if spec.SegmentPath == "" {
		return nil, fmt.Errorf("rpmsg: platform descriptor missing segment_path")
	}

	seg, closer, err := MmapSegmentFile(spec.SegmentPath, spec.BufSize, spec.BufNum, spec.SimBase)
	if err != nil {
		return nil, err
	}
	return &YAMLPlatform{spec: spec, seg: seg, closer: closer}, nil
}

func (p *YAMLPlatform) Region() []byte      { return p.seg.Mem }
func (p *YAMLPlatform) BufferCount() uint64 { return p.spec.BufNum }
func (p *YAMLPlatform) BufferSize() uint64  { return p.spec.BufSize }
func (p *YAMLPlatform) SimBase() uint64     { return p.spec.SimBase }

func (p *YAMLPlatform) PrepopulatedChannels() []ChannelSpec {
	out := make([]ChannelSpec, 0, len(p.spec.Channels))
	for _, c := range p.spec.Channels {
		out = append(out, ChannelSpec{Name: c.Name, Src: c.Src, Dst: c.Dst})
	}
	return out
}

// Close releases the mmap'd segment backing this platform.
func (p *YAMLPlatform) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
