/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

package httpcli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	libval "github.com/go-playground/validator/v10"
	"golang.org/x/net/http/httpproxy"

	tlscfg "github.com/nabbar/htcli/certificates"
	cfgcst "github.com/nabbar/htcli/config/const"
	liberr "github.com/nabbar/htcli/errors"
	"github.com/nabbar/htcli/httpcli/flow"
	"github.com/nabbar/htcli/httpcli/middleware"
	"github.com/nabbar/htcli/httpcli/resolver"
	"github.com/nabbar/htcli/logger"
)

// AutoHeaderMode tags the three states an auto-inserted header can be in.
type AutoHeaderMode uint8

const (
	// AutoHeaderDefault sends the library's own default value.
	AutoHeaderDefault AutoHeaderMode = iota
	// AutoHeaderNone omits the header entirely.
	AutoHeaderNone
	// AutoHeaderProvided sends Value verbatim.
	AutoHeaderProvided
)

// AutoHeaderValue is the tri-state configuration for headers the Agent may
// insert on the caller's behalf (User-Agent, Accept, Accept-Encoding).
type AutoHeaderValue struct {
	Mode  AutoHeaderMode `json:"mode" yaml:"mode" toml:"mode" mapstructure:"mode"`
	Value string         `json:"value" yaml:"value" toml:"value" mapstructure:"value"`
}

// Resolve returns the header value to send and whether the header should
// be sent at all, given def as the library's own default.
func (a AutoHeaderValue) Resolve(def string) (value string, send bool) {
	switch a.Mode {
	case AutoHeaderNone:
		return "", false
	case AutoHeaderProvided:
		return a.Value, a.Value != ""
	default:
		return def, def != ""
	}
}

// Proxy names an explicit proxy to dial through, overriding the
// environment-derived default (see ResolveProxyFromEnvironment). URL is set
// for an explicit override; envConfig is set instead when this Proxy was
// built from HTTP_PROXY/HTTPS_PROXY/ALL_PROXY/NO_PROXY and the actual proxy
// to use must be resolved per-target (NO_PROXY can exempt a given host).
type Proxy struct {
	URL      *url.URL
	Username string
	Password string

	envConfig *httpproxy.Config
}

// Timeouts enumerates the nine phase budgets. A zero value
// means "no timeout for this phase alone" -- it still yields to Global if
// set. Await100 defaults to 1s; every other phase defaults to unbounded.
type Timeouts struct {
	Global       time.Duration `json:"global" yaml:"global" toml:"global" mapstructure:"global"`
	PerCall      time.Duration `json:"perCall" yaml:"perCall" toml:"perCall" mapstructure:"perCall"`
	Resolve      time.Duration `json:"resolve" yaml:"resolve" toml:"resolve" mapstructure:"resolve"`
	Connect      time.Duration `json:"connect" yaml:"connect" toml:"connect" mapstructure:"connect"`
	SendRequest  time.Duration `json:"sendRequest" yaml:"sendRequest" toml:"sendRequest" mapstructure:"sendRequest"`
	Await100     time.Duration `json:"await100" yaml:"await100" toml:"await100" mapstructure:"await100"`
	SendBody     time.Duration `json:"sendBody" yaml:"sendBody" toml:"sendBody" mapstructure:"sendBody"`
	RecvResponse time.Duration `json:"recvResponse" yaml:"recvResponse" toml:"recvResponse" mapstructure:"recvResponse"`
	RecvBody     time.Duration `json:"recvBody" yaml:"recvBody" toml:"recvBody" mapstructure:"recvBody"`
}

// DefaultTimeouts leaves every phase unbounded except the
// await-100 grace period.
func DefaultTimeouts() Timeouts {
	return Timeouts{Await100: time.Second}
}

// Config is the complete enumeration of the engine's builder options. It is a
// flat struct of scalars, strings and shared slice/map/pointer headers:
// Clone is therefore a plain struct copy, no new allocation, as long as
// callers don't mutate what Middleware/TLSConfig/Proxy point to after
// cloning -- exactly the "zero allocation clone" property exercised by tests.
type Config struct {
	HTTPStatusAsError bool `validate:"-" json:"httpStatusAsError" yaml:"httpStatusAsError" toml:"httpStatusAsError" mapstructure:"httpStatusAsError"`
	HTTPSOnly         bool `json:"httpsOnly" yaml:"httpsOnly" toml:"httpsOnly" mapstructure:"httpsOnly"`

	IPFamily resolver.IPFamily `json:"ipFamily" yaml:"ipFamily" toml:"ipFamily" mapstructure:"ipFamily"`

	TLSConfig tlscfg.TLSConfig `json:"-" yaml:"-" toml:"-" mapstructure:"-"`

	Proxy *Proxy `json:"-" yaml:"-" toml:"-" mapstructure:"-"`

	NoDelay bool `json:"noDelay" yaml:"noDelay" toml:"noDelay" mapstructure:"noDelay"`

	MaxRedirects        int                      `validate:"gte=0" json:"maxRedirects" yaml:"maxRedirects" toml:"maxRedirects" mapstructure:"maxRedirects"`
	RedirectAuthHeaders flow.RedirectAuthPolicy  `json:"redirectAuthHeaders" yaml:"redirectAuthHeaders" toml:"redirectAuthHeaders" mapstructure:"redirectAuthHeaders"`

	UserAgent      AutoHeaderValue `json:"userAgent" yaml:"userAgent" toml:"userAgent" mapstructure:"userAgent"`
	Accept         AutoHeaderValue `json:"accept" yaml:"accept" toml:"accept" mapstructure:"accept"`
	AcceptEncoding AutoHeaderValue `json:"acceptEncoding" yaml:"acceptEncoding" toml:"acceptEncoding" mapstructure:"acceptEncoding"`

	MaxResponseHeaderSize int `validate:"gt=0" json:"maxResponseHeaderSize" yaml:"maxResponseHeaderSize" toml:"maxResponseHeaderSize" mapstructure:"maxResponseHeaderSize"`
	InputBufferSize       int `validate:"gt=0" json:"inputBufferSize" yaml:"inputBufferSize" toml:"inputBufferSize" mapstructure:"inputBufferSize"`
	OutputBufferSize      int `validate:"gt=0" json:"outputBufferSize" yaml:"outputBufferSize" toml:"outputBufferSize" mapstructure:"outputBufferSize"`

	MaxIdleConnections         int           `validate:"gte=0" json:"maxIdleConnections" yaml:"maxIdleConnections" toml:"maxIdleConnections" mapstructure:"maxIdleConnections"`
	MaxIdleConnectionsPerHost  int           `validate:"gte=0" json:"maxIdleConnectionsPerHost" yaml:"maxIdleConnectionsPerHost" toml:"maxIdleConnectionsPerHost" mapstructure:"maxIdleConnectionsPerHost"`
	MaxIdleAge                 time.Duration `validate:"gte=0" json:"maxIdleAge" yaml:"maxIdleAge" toml:"maxIdleAge" mapstructure:"maxIdleAge"`

	// MaxBodyBytes caps raw wire body bytes (0 disables the cap), feeding
	// body.Info.LimitBytes -- this is the size-limiting half of C9 that
	// is otherwise left as a per-call/Body-builder option rather than an
	// Agent-wide one; carrying it here too lets an Agent enforce a floor
	// for every call it makes.
	MaxBodyBytes int64 `validate:"gte=0" json:"maxBodyBytes" yaml:"maxBodyBytes" toml:"maxBodyBytes" mapstructure:"maxBodyBytes"`

	Middleware middleware.Chain[*Request, *Response] `json:"-" yaml:"-" toml:"-" mapstructure:"-"`

	Timeouts Timeouts `json:"timeouts" yaml:"timeouts" toml:"timeouts" mapstructure:"timeouts"`

	// Log, when non-nil, is called to obtain a logger.Logger the Agent
	// reports dial/redirect/error events to. Nil leaves the Agent silent,
	// the same opt-in FuncLog convention the logger package itself uses
	// for its other consumers.
	Log logger.FuncLog `json:"-" yaml:"-" toml:"-" mapstructure:"-"`
}

// DefaultConfig returns the library's baseline Config, pretty-printed as
// JSON indented by indent -- the same convention logger/config.DefaultConfig
// uses, so tooling that dumps every component's defaults side by side stays
// consistent.
func DefaultConfig(indent string) []byte {
	cfg := NewConfig()

	raw, err := json.MarshalIndent(cfg, "", cfgcst.JSONIndent)
	if err != nil {
		return nil
	}

	if indent == "" {
		return raw
	}

	res := bytes.NewBuffer(make([]byte, 0, len(raw)))
	if err = json.Indent(res, raw, indent, cfgcst.JSONIndent); err != nil {
		return raw
	}
	return res.Bytes()
}

// NewConfig builds a Config carrying every documented default.
func NewConfig() *Config {
	return &Config{
		HTTPStatusAsError:         true,
		HTTPSOnly:                 false,
		IPFamily:                  resolver.Any,
		NoDelay:                   true,
		MaxRedirects:              10,
		RedirectAuthHeaders:       flow.AuthNever,
		UserAgent:                 AutoHeaderValue{Mode: AutoHeaderDefault},
		Accept:                    AutoHeaderValue{Mode: AutoHeaderDefault, Value: "*/*"},
		AcceptEncoding:            AutoHeaderValue{Mode: AutoHeaderDefault, Value: "gzip, br"},
		MaxResponseHeaderSize:     65536,
		InputBufferSize:           131072,
		OutputBufferSize:          131072,
		MaxIdleConnections:        10,
		MaxIdleConnectionsPerHost: 3,
		MaxIdleAge:                15 * time.Second,
		Timeouts:                  DefaultTimeouts(),
		Proxy:                     ResolveProxyFromEnvironment(),
	}
}

// Clone returns a shallow copy safe to mutate per-request: the struct copy
// itself allocates nothing, and TLSConfig/Proxy/Middleware are shared by
// reference rather than deep-copied, matching the zero-allocation clone
// property exercised by tests.
func (c *Config) Clone() *Config {
	n := *c
	return &n
}

// Use appends mw to the Config's middleware chain, returning the Config
// for chaining. Because Chain.Append never mutates its receiver, this is
// safe to call on a Config already shared by a prior Clone.
func (c *Config) Use(mw middleware.Func[*Request, *Response]) *Config {
	c.Middleware = c.Middleware.Append(mw)
	return c
}

// Validate checks the Config against its struct tags using validator/v10,
// matching certificates.Config.Validate's error-collection idiom.
func (c *Config) Validate() liberr.Error {
	err := ErrorValidatorError.Error(nil)

	if er := libval.New().Struct(c); er != nil {
		if e, ok := er.(*libval.InvalidValidationError); ok {
			err.Add(e)
		} else if ve, ok := er.(libval.ValidationErrors); ok {
			for _, fe := range ve {
				//nolint goerr113
				err.Add(fmt.Errorf("config field '%s' is not validated by constraint '%s'", fe.StructNamespace(), fe.ActualTag()))
			}
		} else {
			err.Add(er)
		}
	}

	if err.HasParent() {
		return err
	}
	return nil
}
