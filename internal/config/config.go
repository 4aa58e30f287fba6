// Package config holds per-network deployment profiles and environment helpers.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

//go:embed networks.yaml
var defaultNetworksYAML []byte

// Network describes where the exchange and its price/gas services live on one chain.
type Network struct {
	ChainID    int64  `yaml:"chain_id"`
	Exchange   string `yaml:"exchange"`
	GasStation string `yaml:"gas_station"`
	OneInch    string `yaml:"oneinch,omitempty"`
}

// ExchangeAddress parses the configured exchange contract address.
func (n Network) ExchangeAddress() (common.Address, error) {
	raw := strings.TrimSpace(n.Exchange)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid exchange address %q", n.Exchange)
	}
	return common.HexToAddress(raw), nil
}

type Networks map[string]Network

// Defaults returns the built-in profiles.
func Defaults() (Networks, error) {
	return decode(defaultNetworksYAML)
}

// LoadNetworks returns the built-in profiles overlaid with the profiles in path.
// Fields left empty in the file keep their built-in value. An empty path yields the defaults.
func LoadNetworks(path string) (Networks, error) {
	nets, err := Defaults()
	if err != nil {
		return nil, fmt.Errorf("decode built-in networks: %w", err)
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nets, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open networks: %w", err)
	}
	overrides, err := decode(b)
	if err != nil {
		return nil, fmt.Errorf("decode networks %s: %w", path, err)
	}
	for name, o := range overrides {
		nets[name] = merge(nets[name], o)
	}
	return nets, nil
}

func decode(b []byte) (Networks, error) {
	nets := Networks{}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&nets); err != nil {
		return nil, err
	}
	return nets, nil
}

func merge(base, o Network) Network {
	if o.ChainID != 0 {
		base.ChainID = o.ChainID
	}
	if strings.TrimSpace(o.Exchange) != "" {
		base.Exchange = o.Exchange
	}
	if strings.TrimSpace(o.GasStation) != "" {
		base.GasStation = o.GasStation
	}
	if strings.TrimSpace(o.OneInch) != "" {
		base.OneInch = o.OneInch
	}
	return base
}

// Lookup returns the named profile after checking its exchange address.
func (n Networks) Lookup(name string) (Network, error) {
	net, ok := n[name]
	if !ok {
		return Network{}, fmt.Errorf("unknown network %q (known: %s)", name, strings.Join(n.Names(), ", "))
	}
	if _, err := net.ExchangeAddress(); err != nil {
		return Network{}, fmt.Errorf("network %s: %w", name, err)
	}
	return net, nil
}

func (n Networks) Names() []string {
	out := make([]string, 0, len(n))
	for name := range n {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// GasStationURLs maps every profile with a gas station to its URL.
func (n Networks) GasStationURLs() map[string]string {
	out := make(map[string]string, len(n))
	for name, net := range n {
		if u := strings.TrimSpace(net.GasStation); u != "" {
			out[name] = u
		}
	}
	return out
}

func RPCURLFromEnv() (string, error) {
	rpcURL := strings.TrimSpace(FirstNonEmpty(os.Getenv("RPC_URL"), os.Getenv("ETH_RPC_URL")))
	if rpcURL == "" {
		return "", fmt.Errorf("RPC_URL required (set RPC_URL in .env)")
	}
	if !strings.HasPrefix(rpcURL, "ws") && !strings.HasPrefix(rpcURL, "http") {
		return "", fmt.Errorf("RPC URL must be ws(s)://... or http(s)://..., got %q", rpcURL)
	}
	if strings.Contains(rpcURL, "YOUR_KEY") {
		return "", fmt.Errorf("RPC URL still contains placeholder YOUR_KEY. Set RPC_URL to your provider URL")
	}
	return rpcURL, nil
}

// EnvBool reads a boolean env var, returning def when unset.
func EnvBool(name string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
