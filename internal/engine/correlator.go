package engine

import (
	"log/slog"
	"net/netip"
	"sort"

	"github.com/miradorstack/mirador-outage/internal/models"
	"github.com/miradorstack/mirador-outage/internal/repo"
)

// SubnetCorrelator infers switch or uplink outages from concurrent host downtime.
type SubnetCorrelator struct {
	logger   *slog.Logger
	collapse bool
}

// NewSubnetCorrelator constructs a SubnetCorrelator. With collapse set, a
// repeated emission identical to the previous one for the same subnet is dropped.
func NewSubnetCorrelator(logger *slog.Logger, collapse bool) *SubnetCorrelator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubnetCorrelator{logger: logger, collapse: collapse}
}

// subnetGroup collects the downtime of every host seen in one subnet. Hosts
// share a group when their network addresses match, whatever their prefix
// lengths; key renders the first host's network with its own prefix.
type subnetGroup struct {
	key       string
	hosts     map[string]struct{}
	intervals []models.Interval
}

// hostState is the latest downtime recorded for a host while replaying events.
type hostState struct {
	down     bool
	interval models.Interval
}

// Correlate groups downtime intervals by subnet and emits an interval each time
// an event leaves every host of the subnet down at once.
func (c *SubnetCorrelator) Correlate(downtime []models.Interval) []models.Interval {
	groups := c.group(downtime)

	outages := make([]models.Interval, 0)
	for _, g := range groups {
		if len(g.hosts) < 2 {
			continue
		}
		outages = append(outages, c.replay(g)...)
	}
	return outages
}

func (c *SubnetCorrelator) group(downtime []models.Interval) []*subnetGroup {
	index := make(map[netip.Addr]*subnetGroup)
	ordered := make([]*subnetGroup, 0)
	for _, interval := range downtime {
		subnet, err := SubnetOf(interval.Subject)
		if err != nil {
			c.logger.Warn("skipping downtime with unparsable address", slog.String("subject", interval.Subject), slog.Any("error", err))
			continue
		}
		g, ok := index[subnet.Addr()]
		if !ok {
			g = &subnetGroup{key: subnet.String(), hosts: make(map[string]struct{})}
			index[subnet.Addr()] = g
			ordered = append(ordered, g)
		}
		g.hosts[interval.Subject] = struct{}{}
		g.intervals = append(g.intervals, interval)
	}
	return ordered
}

func (c *SubnetCorrelator) replay(g *subnetGroup) []models.Interval {
	events := append([]models.Interval(nil), g.intervals...)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})

	states := make(map[string]*hostState, len(g.hosts))
	for host := range g.hosts {
		states[host] = &hostState{}
	}

	outages := make([]models.Interval, 0)
	for _, event := range events {
		states[event.Subject] = &hostState{down: true, interval: event}

		earliest, allDown := earliestEndIfAllDown(states, event)
		if !allDown {
			continue
		}

		outage := models.Interval{
			Subject:      g.key,
			Start:        event.Start,
			End:          earliest.End,
			Unterminated: earliest.Unterminated,
		}
		if c.collapse && len(outages) > 0 && sameSpan(outages[len(outages)-1], outage) {
			continue
		}
		c.logger.Debug("subnet outage", slog.String("subnet", g.key), slog.Time("start", outage.Start), slog.Bool("unterminated", outage.Unterminated))
		outages = append(outages, outage)
	}
	return outages
}

// earliestEndIfAllDown reports whether every host is down at the event's start
// and, if so, the host interval that ends first. A host whose recorded downtime
// closed before the event started counts as up again.
func earliestEndIfAllDown(states map[string]*hostState, event models.Interval) (models.Interval, bool) {
	var earliest models.Interval
	first := true
	for _, state := range states {
		if !state.down || state.interval.EndsBefore(event.Start) {
			return models.Interval{}, false
		}
		if first {
			earliest = state.interval
			first = false
			continue
		}
		earliest = models.EarlierEnd(earliest, state.interval)
	}
	return earliest, !first
}

func sameSpan(a, b models.Interval) bool {
	return a.Start.Equal(b.Start) && a.End.Equal(b.End) && a.Unterminated == b.Unterminated
}

// SubnetOf returns the masked network prefix of a host address.
func SubnetOf(address string) (netip.Prefix, error) {
	prefix, err := repo.ParseAddress(address)
	if err != nil {
		return netip.Prefix{}, err
	}
	return prefix.Masked(), nil
}
