// Copyright 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/matrixorigin/mosbuf/pkg/common/moerr"
	"github.com/matrixorigin/mosbuf/pkg/logutil"
	"github.com/matrixorigin/mosbuf/pkg/mbuf"
	"github.com/matrixorigin/mosbuf/pkg/mempool"
	"github.com/matrixorigin/mosbuf/pkg/msys"
)

const (
	defaultLogLevel      = "info"
	defaultLogFormat     = "console"
	defaultLogMaxSize    = 512
	defaultListenAddress = "127.0.0.1:7001"
)

// Config is the top level configuration of an mbuf deployment.
type Config struct {
	Log     logutil.LogConfig `toml:"log"`
	Msys    MsysConfig        `toml:"msys"`
	Metrics MetricsConfig     `toml:"metrics"`
}

// MsysConfig describes the pools registered with the system registry.
type MsysConfig struct {
	//the most pools the registry accepts. default: 8
	MaxPools int `toml:"max-pools"`

	Pools []PoolConfig `toml:"pools"`
}

type PoolConfig struct {
	//pool name, unique within the registry
	Name string `toml:"name"`

	//bytes per block, buffer header included
	BlockSize int `toml:"block-size"`

	BlockCount int `toml:"block-count"`

	//default is false. true backs the pool with an anonymous mapping
	Mmap bool `toml:"mmap"`
}

type MetricsConfig struct {
	//default is false. true serves prometheus metrics on ListenAddress
	Enable bool `toml:"enable"`

	//default: 127.0.0.1:7001
	ListenAddress string `toml:"listen-address"`
}

// LoadFile decodes the toml file at path, fills defaults and validates
// the result.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, moerr.NewBadConfig(context.TODO(), "decode %s: %v", path, err)
	}
	cfg.SetDefaultValues()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode is LoadFile for configuration already in memory.
func Decode(data string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.Decode(data, cfg); err != nil {
		return nil, moerr.NewBadConfig(context.TODO(), "decode: %v", err)
	}
	cfg.SetDefaultValues()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) SetDefaultValues() {
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
	if c.Log.MaxSize == 0 {
		c.Log.MaxSize = defaultLogMaxSize
	}
	if c.Msys.MaxPools == 0 {
		c.Msys.MaxPools = msys.DefaultMaxPools
	}
	if c.Metrics.ListenAddress == "" {
		c.Metrics.ListenAddress = defaultListenAddress
	}
}

func (c *Config) Validate() error {
	ctx := context.TODO()
	switch c.Log.Format {
	case "console", "json":
	default:
		return moerr.NewBadConfig(ctx, "unsupported log format %q", c.Log.Format)
	}
	if c.Msys.MaxPools < 0 {
		return moerr.NewBadConfig(ctx, "max-pools %d is negative", c.Msys.MaxPools)
	}
	if len(c.Msys.Pools) > c.Msys.MaxPools {
		return moerr.NewBadConfig(ctx, "%d pools configured, max-pools is %d",
			len(c.Msys.Pools), c.Msys.MaxPools)
	}
	names := make(map[string]struct{}, len(c.Msys.Pools))
	for i, p := range c.Msys.Pools {
		if p.Name == "" {
			return moerr.NewBadConfig(ctx, "pool #%d has no name", i)
		}
		if _, ok := names[p.Name]; ok {
			return moerr.NewBadConfig(ctx, "duplicate pool %s", p.Name)
		}
		names[p.Name] = struct{}{}
		if p.BlockSize <= mbuf.HeaderSize {
			return moerr.NewBadConfig(ctx, "pool %s: block-size %d must exceed %d",
				p.Name, p.BlockSize, mbuf.HeaderSize)
		}
		if p.BlockCount <= 0 {
			return moerr.NewBadConfig(ctx, "pool %s: block-count %d must be positive",
				p.Name, p.BlockCount)
		}
	}
	return nil
}

// BuildRegistry creates every configured pool and registers it with a new
// registry. Pools are created in file order.
func (c *Config) BuildRegistry() (*msys.Registry, error) {
	r := msys.NewRegistry(c.Msys.MaxPools)
	if err := c.RegisterPools(r); err != nil {
		return nil, err
	}
	return r, nil
}

// RegisterPools creates the configured pools and registers them with r.
func (c *Config) RegisterPools(r *msys.Registry) error {
	for _, pc := range c.Msys.Pools {
		var opts []mempool.Option
		if pc.Mmap {
			opts = append(opts, mempool.WithMmap())
		}
		bp, err := mempool.New(pc.Name, pc.BlockSize, pc.BlockCount, opts...)
		if err != nil {
			return err
		}
		p, err := mbuf.NewPool(bp)
		if err != nil {
			return err
		}
		if err = r.Register(p); err != nil {
			logutil.Error("register pool failed",
				zap.String("pool", pc.Name),
				zap.Error(err),
			)
			return err
		}
	}
	return nil
}
