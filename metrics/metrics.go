// 信控运行指标，通过Prometheus暴露
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity/junction"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity/junction/trafficlight"
)

const namespace = "adaptive_signal"

// Metrics 信控指标集合
// 功能：每个tick根据路口快照更新仪表，计数器按快照中的累计值增量递增
type Metrics struct {
	CycleLength      prometheus.Gauge
	CycleTime        prometheus.Gauge
	PhaseGreen       *prometheus.GaugeVec
	PhaseDS          *prometheus.GaugeVec
	PhaseQueue       *prometheus.GaugeVec
	LaneQueue        *prometheus.GaugeVec
	LaneDS           *prometheus.GaugeVec
	ActivePhase      prometheus.Gauge
	Fault            prometheus.Gauge
	Preempted        prometheus.Gauge
	CyclesTotal      prometheus.Counter
	ConflictsTotal   prometheus.Counter
	PreemptionsTotal prometheus.Counter

	lastCycle       int
	lastConflicts   int
	lastPreemptions int
}

// New 创建并注册指标
// 参数：reg-注册器，通常为prometheus.DefaultRegisterer，测试中使用独立的Registry
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CycleLength: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plan_cycle_length_seconds",
			Help:      "Cycle length of the latest adaptive plan",
		}),
		CycleTime: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ring_cycle_time_seconds",
			Help:      "Sum of green, yellow and all-red over the phase ring after enforcement",
		}),
		PhaseGreen: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_green_seconds",
			Help:      "Enforced green duration per phase",
		}, []string{"phase"}),
		PhaseDS: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_degree_of_saturation",
			Help:      "Smoothed degree of saturation per phase from the latest plan",
		}, []string{"phase"}),
		PhaseQueue: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_queue_vehicles",
			Help:      "Total queue served by each phase in the latest plan",
		}, []string{"phase"}),
		LaneQueue: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lane_queue_vehicles",
			Help:      "Current queue per approach lane",
		}, []string{"direction", "movement"}),
		LaneDS: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lane_degree_of_saturation",
			Help:      "Queue over capacity per lane at the current green of its serving phase",
		}, []string{"direction", "movement"}),
		ActivePhase: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_phase",
			Help:      "ID of the phase currently timing",
		}),
		Fault: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fault_mode",
			Help:      "1 when the conflict monitor has latched fault mode",
		}),
		Preempted: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "preempted",
			Help:      "1 while an emergency preemption is requested or active",
		}),
		CyclesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed ring cycles",
		}),
		ConflictsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Conflicting green indications observed by the monitor",
		}),
		PreemptionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preemptions_total",
			Help:      "Accepted emergency preemption requests",
		}),
	}
}

// Observe 根据路口快照更新全部指标
func (m *Metrics) Observe(s junction.Snapshot) {
	st := s.Controller
	m.ActivePhase.Set(float64(st.PhaseID))
	m.Fault.Set(boolToFloat(st.Fault))
	m.Preempted.Set(boolToFloat(st.Preemption.State != trafficlight.PreemptionIdle))
	m.CycleTime.Set(s.CycleTime)

	for _, p := range s.Phases {
		m.PhaseGreen.WithLabelValues(phaseLabel(p.ID)).Set(p.Green)
	}
	if s.Plan != nil {
		m.CycleLength.Set(s.Plan.CycleLength)
		for _, d := range s.Plan.Demands {
			m.PhaseDS.WithLabelValues(phaseLabel(d.PhaseID)).Set(d.DegreeOfSaturation)
			m.PhaseQueue.WithLabelValues(phaseLabel(d.PhaseID)).Set(float64(d.TotalQueue))
		}
	}
	for _, l := range s.Lanes {
		m.LaneQueue.WithLabelValues(l.Direction.String(), l.Movement.String()).Set(float64(l.Queue))
		m.LaneDS.WithLabelValues(l.Direction.String(), l.Movement.String()).Set(l.DegreeOfSaturation)
	}

	m.CyclesTotal.Add(float64(delta(&m.lastCycle, st.Cycle)))
	m.ConflictsTotal.Add(float64(delta(&m.lastConflicts, s.Conflicts)))
	m.PreemptionsTotal.Add(float64(delta(&m.lastPreemptions, st.Preemption.Total)))
}

// delta 累计值的增量，累计值回退时视为0
func delta(last *int, current int) int {
	d := current - *last
	*last = current
	if d < 0 {
		return 0
	}
	return d
}

func phaseLabel(id int32) string {
	return strconv.Itoa(int(id))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
