package driver

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"eltexfacts/internal/domain"
	"eltexfacts/internal/textparse"
)

// PingOptions tune a ping issued from the device. Zero values leave the
// device defaults in place.
type PingOptions struct {
	Source  string
	Size    int
	Count   int
	Timeout time.Duration
	VRF     string
}

var (
	pingSent     = regexp.MustCompile(`(\d+) packets? transmitted`)
	pingReceived = regexp.MustCompile(`(\d+) packets? received`)
	pingRTT      = regexp.MustCompile(`min/avg/max = (\d+(?:\.\d+)?)/(\d+(?:\.\d+)?)/(\d+(?:\.\d+)?)`)
	pingReply    = regexp.MustCompile(`(?m)(?:Reply from|bytes from).+time[=<](\d+(?:\.\d+)?)`)
)

func pingCommand(destination string, opts PingOptions) string {
	parts := []string{"ping", destination}
	if opts.Size > 0 {
		parts = append(parts, "size", strconv.Itoa(opts.Size))
	}
	if opts.Count > 0 {
		parts = append(parts, "count", strconv.Itoa(opts.Count))
	}
	if opts.Timeout > 0 {
		parts = append(parts, "timeout", strconv.FormatInt(opts.Timeout.Milliseconds(), 10))
	}
	if opts.Source != "" {
		parts = append(parts, "source", opts.Source)
	}
	return strings.Join(parts, " ")
}

// Ping runs ping on the device. Device-reported failures land in
// PingResult.Error; output that is neither an error nor ping statistics
// yields an empty result.
func (d *Driver) Ping(ctx context.Context, destination string, opts PingOptions) (*domain.PingResult, error) {
	if opts.VRF != "" {
		return nil, fmt.Errorf("ping in vrf %q: %w", opts.VRF, ErrUnsupportedFeature)
	}

	out, err := d.run(ctx, pingCommand(destination, opts))
	if err != nil {
		return nil, err
	}

	result := &domain.PingResult{}
	switch {
	case strings.Contains(out, "Error"):
		result.Error = out
	case strings.Contains(out, "PING"):
		sent := pingSent.FindStringSubmatch(out)
		received := pingReceived.FindStringSubmatch(out)
		if sent == nil || received == nil {
			return nil, fmt.Errorf("ping: %w", &textparse.ParseError{Msg: "unexpected output data", Raw: out})
		}
		nSent, _ := strconv.Atoi(sent[1])
		nReceived, _ := strconv.Atoi(received[1])

		success := &domain.PingSuccess{
			ProbesSent: nSent,
			PacketLoss: nSent - nReceived,
			Results:    []domain.PingProbe{},
		}
		if m := pingRTT.FindStringSubmatch(out); m != nil {
			success.RTTMin, _ = strconv.ParseFloat(m[1], 64)
			success.RTTAvg, _ = strconv.ParseFloat(m[2], 64)
			success.RTTMax, _ = strconv.ParseFloat(m[3], 64)
			for _, r := range pingReply.FindAllStringSubmatch(out, -1) {
				rtt, _ := strconv.ParseFloat(r[1], 64)
				success.Results = append(success.Results, domain.PingProbe{IPAddress: destination, RTT: rtt})
			}
		}
		result.Success = success
	}
	return result, nil
}
