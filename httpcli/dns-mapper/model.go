/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package dns_mapper

import (
	"context"
	"sync"
	"time"

	libatm "github.com/nabbar/htcli/atomic"
)

type dmp struct {
	d *sync.Map // endpoint (*dp) -> mapped address (string)
	z *sync.Map // SearchWithCache result cache, keyed on the raw lookup string
	c libatm.Value[*Config]
	n libatm.Value[func()] // TimeCleaner stop func, set once Close is callable
	i FuncMessage
}

func (o *dmp) config() *Config {
	if cfg := o.c.Load(); cfg != nil {
		return cfg
	}
	return &Config{}
}

func (o *dmp) Message(msg string) {
	if o.i != nil {
		o.i(msg)
	}
}

func (o *dmp) CacheHas(endpoint string) bool {
	_, l := o.z.Load(endpoint)
	return l
}

func (o *dmp) CacheGet(endpoint string) string {
	if i, l := o.z.Load(endpoint); !l {
		return ""
	} else if v, k := i.(string); !k {
		return ""
	} else {
		return v
	}
}

func (o *dmp) CacheSet(endpoint, ip string) {
	o.z.Store(endpoint, ip)
}

// TimeCleaner starts a background goroutine that periodically drops the
// SearchWithCache result cache, so stale entries do not outlive changes
// made to the mapping table through Add/Del.
func (o *dmp) TimeCleaner(ctx context.Context, dur time.Duration) {
	if dur < 5*time.Second {
		dur = 5 * time.Minute
	}

	cctx, cancel := context.WithCancel(ctx)
	o.n.Store(cancel)

	go func() {
		tck := time.NewTicker(dur)
		defer tck.Stop()

		for {
			select {
			case <-tck.C:
				o.z.Range(func(key, _ any) bool {
					o.z.Delete(key)
					return true
				})
			case <-cctx.Done():
				return
			}
		}
	}()
}

// Close stops the TimeCleaner goroutine, if one was started.
func (o *dmp) Close() error {
	if cancel := o.n.Load(); cancel != nil {
		cancel()
	}
	return nil
}

func (o *dmp) GetConfig() Config {
	return *o.config()
}
