// 展示与操作接口：HTTP API、Prometheus指标与websocket实时推送
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tsinghua-fib-lab/adaptive-signal/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal/task"
	"github.com/tsinghua-fib-lab/adaptive-signal/utils/config"
	"gopkg.in/yaml.v2"
)

var (
	ErrMissingParam   = errors.New("missing query parameter")
	ErrNonFiniteParam = errors.New("query parameter must be a finite number")
)

// IOperator 服务端依赖的控制任务接口，所有写入都是缓冲的，在下一个tick生效
type IOperator interface {
	Snapshot() task.Snapshot
	RuntimeConfig() *config.RuntimeConfig
	RequestPreemption(d entity.Direction) error
	ClearPreemption()
	Pause()
	Resume()
	SetSpeed(factor float64) error
	SetPhaseGreen(id int32, green float64) error
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server HTTP服务
type Server struct {
	op  IOperator
	hub *Hub
	mux *http.ServeMux
}

// New 创建HTTP服务并注册路由
// 参数：op-控制任务，hub-websocket广播中心，gatherer-指标来源
func New(op IOperator, hub *Hub, gatherer prometheus.Gatherer) *Server {
	s := &Server{op: op, hub: hub, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/config", s.handleConfig)
	s.mux.HandleFunc("POST /api/preempt", s.handlePreempt)
	s.mux.HandleFunc("DELETE /api/preempt", s.handleClearPreempt)
	s.mux.HandleFunc("POST /api/pause", s.handlePause)
	s.mux.HandleFunc("POST /api/resume", s.handleResume)
	s.mux.HandleFunc("POST /api/speed", s.handleSpeed)
	s.mux.HandleFunc("POST /api/phases/{id}/green", s.handlePhaseGreen)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	s.mux.HandleFunc("GET /ws", s.handleWs)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe 监听并服务，ctx取消时优雅关闭
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			log.Warnf("server shutdown: %v", err)
		}
	}()
	log.Infof("http server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func accepted(w http.ResponseWriter) {
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

func floatParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, ErrMissingParam
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s=%s", ErrNonFiniteParam, name, raw)
	}
	return v, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.op.Snapshot())
}

// handleConfig 以配置文件相同的YAML格式返回生效配置
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	data, err := yaml.Marshal(s.op.RuntimeConfig().All)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	if _, err := w.Write(data); err != nil {
		log.Warnf("write response: %v", err)
	}
}

func (s *Server) handlePreempt(w http.ResponseWriter, r *http.Request) {
	d, err := entity.ParseDirection(r.URL.Query().Get("direction"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.op.RequestPreemption(d); err != nil {
		writeError(w, err)
		return
	}
	accepted(w)
}

func (s *Server) handleClearPreempt(w http.ResponseWriter, r *http.Request) {
	s.op.ClearPreemption()
	accepted(w)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.op.Pause()
	accepted(w)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.op.Resume()
	accepted(w)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	factor, err := floatParam(r, "factor")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.op.SetSpeed(factor); err != nil {
		writeError(w, err)
		return
	}
	accepted(w)
}

func (s *Server) handlePhaseGreen(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 32)
	if err != nil {
		writeError(w, err)
		return
	}
	green, err := floatParam(r, "seconds")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.op.SetPhaseGreen(int32(id), green); err != nil {
		writeError(w, err)
		return
	}
	accepted(w)
}

func (s *Server) handleWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("upgrade websocket: %v", err)
		return
	}
	s.hub.serve(conn)
}
