package remote

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultPort        = 1194
	DefaultProto       = "udp"
	DefaultTimeout     = 5 * time.Second
	DefaultConcurrency = 10
)

// remotePattern matches OpenVPN directives of the form
// "remote <hostname> [port] [proto]".
var remotePattern = regexp.MustCompile(`(?im)^\s*remote\s+(\S+)(?:\s+(\d+))?(?:\s+(tcp|udp))?`)

var blankLines = regexp.MustCompile(`\n\s*\n`)

// Remote is a single remote directive from an OpenVPN config.
type Remote struct {
	Host  string
	Port  int
	Proto string

	// RTT is the measured TCP connect time. Failed reports that the
	// probe could not connect.
	RTT    time.Duration
	Failed bool

	original string
}

// Addr returns the host:port dial address.
func (r *Remote) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// ConfigLine renders the directive back into OpenVPN syntax.
func (r *Remote) ConfigLine() string {
	line := "remote " + r.Host
	if r.Port > 0 {
		line += " " + strconv.Itoa(r.Port)
	}
	if r.Proto != "" {
		line += " " + r.Proto
	}
	return line
}

// Parse extracts all remote directives from an OpenVPN config. Port
// defaults to 1194 and protocol to udp when omitted.
func Parse(config string) []*Remote {
	var remotes []*Remote
	for _, m := range remotePattern.FindAllStringSubmatch(config, -1) {
		r := &Remote{
			Host:     m[1],
			Port:     DefaultPort,
			Proto:    DefaultProto,
			original: m[0],
		}
		if m[2] != "" {
			if port, err := strconv.Atoi(m[2]); err == nil {
				r.Port = port
			}
		}
		if m[3] != "" {
			r.Proto = m[3]
		}
		remotes = append(remotes, r)
	}
	return remotes
}

// Probe measures TCP connect time to every remote concurrently,
// updating each entry in place. Unreachable remotes are marked Failed
// rather than aborting the run.
func Probe(ctx context.Context, remotes []*Remote, timeout time.Duration, concurrency int) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, r := range remotes {
		g.Go(func() error {
			dialer := net.Dialer{Timeout: timeout}
			start := time.Now()
			conn, err := dialer.DialContext(gctx, "tcp", r.Addr())
			if err != nil {
				r.Failed = true
				return nil
			}
			r.RTT = time.Since(start)
			conn.Close()
			return nil
		})
	}
	_ = g.Wait()
}

// Sort returns a copy ordered fastest first with failed probes at the
// end. Ties keep their original order.
func Sort(remotes []*Remote) []*Remote {
	sorted := make([]*Remote, len(remotes))
	copy(sorted, remotes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Failed != sorted[j].Failed {
			return !sorted[i].Failed
		}
		return sorted[i].RTT < sorted[j].RTT
	})
	return sorted
}

// Fastest returns the remote with the lowest measured RTT, or nil when
// every probe failed.
func Fastest(remotes []*Remote) *Remote {
	var fastest *Remote
	for _, r := range remotes {
		if r.Failed {
			continue
		}
		if fastest == nil || r.RTT < fastest.RTT {
			fastest = r
		}
	}
	return fastest
}

// Rewrite rebuilds config with the remote block in sorted order. The
// block goes right after the client directive when one is present,
// otherwise at the top. remotes must be the original parse order,
// sorted the desired output order.
func Rewrite(config string, remotes, sorted []*Remote) string {
	if len(remotes) == 0 {
		return config
	}

	modified := config
	for _, r := range remotes {
		modified = strings.ReplaceAll(modified, r.original, "")
	}
	modified = blankLines.ReplaceAllString(modified, "\n")

	var block strings.Builder
	block.WriteString("# Remotes sorted by ping time (fastest first)\n")
	for _, r := range sorted {
		block.WriteString(r.ConfigLine())
		if r.Failed {
			block.WriteString("  # ping failed")
		} else {
			block.WriteString(fmt.Sprintf("  # %dms", r.RTT.Milliseconds()))
		}
		block.WriteString("\n")
	}
	block.WriteString("\n")

	if idx := strings.Index(modified, "client"); idx != -1 {
		return modified[:idx+len("client")] + "\n\n" + block.String() + modified[idx+len("client"):]
	}
	return block.String() + modified
}

// Optimize probes every remote in config and rebuilds it fastest
// first. The returned slice holds the probe results in output order.
func Optimize(ctx context.Context, config string, timeout time.Duration, concurrency int) (string, []*Remote) {
	remotes := Parse(config)
	if len(remotes) == 0 {
		return config, nil
	}
	Probe(ctx, remotes, timeout, concurrency)
	sorted := Sort(remotes)
	return Rewrite(config, remotes, sorted), sorted
}
