package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// coleta métricas detalhadas de uma sessão RDT
type SessionMetrics struct {
	// Contadores básicos
	BytesSent        uint64 `json:"bytes_sent"`
	BytesReceived    uint64 `json:"bytes_received"`
	PacketsSent      uint64 `json:"packets_sent"`
	PacketsReceived  uint64 `json:"packets_received"`

	// Contadores de erro
	Errors             uint64 `json:"errors"`
	Timeouts           uint64 `json:"timeouts"`
	Retransmissions    uint64 `json:"retransmissions"`
	DuplicateAcks      uint64 `json:"duplicate_acks"`
	ChecksumFailures   uint64 `json:"checksum_failures"`
	SimulatedDrops     uint64 `json:"simulated_drops"`

	// Métricas de tempo
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	// Métricas de performance
	AverageSpeed float64 `json:"average_speed"` // bytes/segundo
	PeakSpeed    float64 `json:"peak_speed"`    // bytes/segundo

	// Métricas de rede
	PacketLoss float64       `json:"packet_loss"` // percentual
	Latency    time.Duration `json:"latency"`     // latência média

	// Histórico de velocidades para gráficos
	SpeedHistory []SpeedPoint `json:"speed_history"`

	// Mutex para proteção
	mu sync.RWMutex
}

// representa um ponto no histórico de velocidade
type SpeedPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Speed     float64   `json:"speed"` // bytes/segundo
}

// cria uma nova instância de métricas
func NewSessionMetrics() *SessionMetrics {
	return &SessionMetrics{
		StartTime:    time.Now(),
		SpeedHistory: make([]SpeedPoint, 0),
	}
}

// adiciona bytes enviados
func (m *SessionMetrics) AddBytesSent(bytes uint64) {
	atomic.AddUint64(&m.BytesSent, bytes)
}

// adiciona bytes recebidos
func (m *SessionMetrics) AddBytesReceived(bytes uint64) {
	atomic.AddUint64(&m.BytesReceived, bytes)
}

// adiciona pacotes enviados
func (m *SessionMetrics) AddPacketsSent(packets uint64) {
	atomic.AddUint64(&m.PacketsSent, packets)
}

// adiciona pacotes recebidos
func (m *SessionMetrics) AddPacketsReceived(packets uint64) {
	atomic.AddUint64(&m.PacketsReceived, packets)
}

// adiciona um erro
func (m *SessionMetrics) AddError() {
	atomic.AddUint64(&m.Errors, 1)
}

// adiciona um timeout
func (m *SessionMetrics) AddTimeout() {
	atomic.AddUint64(&m.Timeouts, 1)
}

// adiciona uma retransmissão do timer de RDT 3.0
func (m *SessionMetrics) AddRetransmission() {
	atomic.AddUint64(&m.Retransmissions, 1)
}

// adiciona um ACK duplicado enviado (stale-bit re-ACK em resposta a um
// DATA duplicado recebido)
func (m *SessionMetrics) AddDuplicateAck() {
	atomic.AddUint64(&m.DuplicateAcks, 1)
}

// adiciona uma falha de checksum detectada na recepção
func (m *SessionMetrics) AddChecksumFailure() {
	atomic.AddUint64(&m.ChecksumFailures, 1)
}

// adiciona um drop simulado pelo canal não confiável
func (m *SessionMetrics) AddSimulatedDrop() {
	atomic.AddUint64(&m.SimulatedDrops, 1)
}

// registra a velocidade atual
func (m *SessionMetrics) RecordSpeed(speed float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	point := SpeedPoint{
		Timestamp: time.Now(),
		Speed:     speed,
	}

	m.SpeedHistory = append(m.SpeedHistory, point)

	// Mantém apenas os últimos 1000 pontos para evitar uso excessivo de memória
	if len(m.SpeedHistory) > 1000 {
		m.SpeedHistory = m.SpeedHistory[len(m.SpeedHistory)-1000:]
	}

	// Atualiza velocidade de pico
	if speed > m.PeakSpeed {
		m.PeakSpeed = speed
	}
}

// finaliza as métricas e calcula valores finais
func (m *SessionMetrics) Finish() {
	m.EndTime = time.Now()
	m.Duration = m.EndTime.Sub(m.StartTime)

	if m.Duration > 0 {
		bytesReceived := atomic.LoadUint64(&m.BytesReceived)
		m.AverageSpeed = float64(bytesReceived) / m.Duration.Seconds()
	}

	// Calcula perda de pacotes a partir das retransmissões observadas
	packetsSent := atomic.LoadUint64(&m.PacketsSent)
	retransmissions := atomic.LoadUint64(&m.Retransmissions)
	if packetsSent > 0 {
		m.PacketLoss = (float64(retransmissions) / float64(packetsSent+retransmissions)) * 100
	}
}

// retorna uma cópia das métricas atuais
func (m *SessionMetrics) GetSnapshot() SessionMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return SessionMetrics{
		BytesSent:        atomic.LoadUint64(&m.BytesSent),
		BytesReceived:    atomic.LoadUint64(&m.BytesReceived),
		PacketsSent:      atomic.LoadUint64(&m.PacketsSent),
		PacketsReceived:  atomic.LoadUint64(&m.PacketsReceived),
		Errors:           atomic.LoadUint64(&m.Errors),
		Timeouts:         atomic.LoadUint64(&m.Timeouts),
		Retransmissions:  atomic.LoadUint64(&m.Retransmissions),
		DuplicateAcks:    atomic.LoadUint64(&m.DuplicateAcks),
		ChecksumFailures: atomic.LoadUint64(&m.ChecksumFailures),
		SimulatedDrops:   atomic.LoadUint64(&m.SimulatedDrops),
		StartTime:        m.StartTime,
		EndTime:          m.EndTime,
		Duration:         m.Duration,
		AverageSpeed:     m.AverageSpeed,
		PeakSpeed:        m.PeakSpeed,
		PacketLoss:       m.PacketLoss,
		Latency:          m.Latency,
		SpeedHistory:     append([]SpeedPoint(nil), m.SpeedHistory...),
	}
}

// coleta métricas do servidor de chat
type ServerMetrics struct {
	// Contadores básicos
	TotalSessions     uint64 `json:"total_sessions"`
	ActiveSessions    int64  `json:"active_sessions"`
	TotalBytesSent    uint64 `json:"total_bytes_sent"`
	TotalPacketsSent  uint64 `json:"total_packets_sent"`

	// Contadores de erro
	TotalErrors          uint64 `json:"total_errors"`
	TotalTimeouts        uint64 `json:"total_timeouts"`
	TotalRetransmissions uint64 `json:"total_retransmissions"`
	TotalDuplicateAcks   uint64 `json:"total_duplicate_acks"`

	// Métricas de tempo
	Uptime    time.Duration `json:"uptime"`
	StartTime time.Time     `json:"start_time"`

	// Métricas de performance
	AverageSessions float64 `json:"average_sessions"`
	PeakSessions    int64   `json:"peak_sessions"`

	// Histórico de sessões
	SessionHistory []SessionPoint `json:"session_history"`

	// Mutex para proteção
	mu sync.RWMutex
}

// representa um ponto no histórico de sessões ativas
type SessionPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Count     int64     `json:"count"`
}

// cria uma nova instância de métricas do servidor
func NewServerMetrics() *ServerMetrics {
	return &ServerMetrics{
		StartTime:      time.Now(),
		SessionHistory: make([]SessionPoint, 0),
	}
}

// registra uma nova sessão de peer
func (m *ServerMetrics) AddSession() {
	atomic.AddUint64(&m.TotalSessions, 1)
	active := atomic.AddInt64(&m.ActiveSessions, 1)

	if active > atomic.LoadInt64(&m.PeakSessions) {
		atomic.StoreInt64(&m.PeakSessions, active)
	}

	m.recordSessionCount(active)
}

// encerra uma sessão de peer
func (m *ServerMetrics) RemoveSession() {
	active := atomic.AddInt64(&m.ActiveSessions, -1)
	if active < 0 {
		active = 0
		atomic.StoreInt64(&m.ActiveSessions, 0)
	}

	m.recordSessionCount(active)
}

// adiciona bytes enviados
func (m *ServerMetrics) AddBytesSent(bytes uint64) {
	atomic.AddUint64(&m.TotalBytesSent, bytes)
}

// adiciona pacotes enviados
func (m *ServerMetrics) AddPacketsSent(packets uint64) {
	atomic.AddUint64(&m.TotalPacketsSent, packets)
}

// adiciona um erro
func (m *ServerMetrics) AddError() {
	atomic.AddUint64(&m.TotalErrors, 1)
}

// adiciona um timeout
func (m *ServerMetrics) AddTimeout() {
	atomic.AddUint64(&m.TotalTimeouts, 1)
}

// adiciona retransmissões observadas em uma sessão encerrada
func (m *ServerMetrics) AddRetransmissions(n uint64) {
	atomic.AddUint64(&m.TotalRetransmissions, n)
}

// adiciona ACKs duplicados observados em uma sessão encerrada
func (m *ServerMetrics) AddDuplicateAcks(n uint64) {
	atomic.AddUint64(&m.TotalDuplicateAcks, n)
}

// registra o número atual de sessões ativas
func (m *ServerMetrics) recordSessionCount(count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	point := SessionPoint{
		Timestamp: time.Now(),
		Count:     count,
	}

	m.SessionHistory = append(m.SessionHistory, point)

	if len(m.SessionHistory) > 1000 {
		m.SessionHistory = m.SessionHistory[len(m.SessionHistory)-1000:]
	}
}

// retorna uma cópia das métricas atuais
func (m *ServerMetrics) GetSnapshot() ServerMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return ServerMetrics{
		TotalSessions:        atomic.LoadUint64(&m.TotalSessions),
		ActiveSessions:       atomic.LoadInt64(&m.ActiveSessions),
		TotalBytesSent:       atomic.LoadUint64(&m.TotalBytesSent),
		TotalPacketsSent:     atomic.LoadUint64(&m.TotalPacketsSent),
		TotalErrors:          atomic.LoadUint64(&m.TotalErrors),
		TotalTimeouts:        atomic.LoadUint64(&m.TotalTimeouts),
		TotalRetransmissions: atomic.LoadUint64(&m.TotalRetransmissions),
		TotalDuplicateAcks:   atomic.LoadUint64(&m.TotalDuplicateAcks),
		Uptime:               time.Since(m.StartTime),
		StartTime:            m.StartTime,
		AverageSessions:      m.calculateAverageSessions(),
		PeakSessions:         atomic.LoadInt64(&m.PeakSessions),
		SessionHistory:       append([]SessionPoint(nil), m.SessionHistory...),
	}
}

// calcula a média de sessões ativas
func (m *ServerMetrics) calculateAverageSessions() float64 {
	if len(m.SessionHistory) == 0 {
		return 0
	}

	var sum int64
	for _, point := range m.SessionHistory {
		sum += point.Count
	}

	return float64(sum) / float64(len(m.SessionHistory))
}

// monitora performance em tempo real
type PerformanceMonitor struct {
	metrics        *SessionMetrics
	lastUpdate     time.Time
	lastBytes      uint64
	updateInterval time.Duration
}

// cria um novo monitor de performance
func NewPerformanceMonitor(metrics *SessionMetrics) *PerformanceMonitor {
	return &PerformanceMonitor{
		metrics:        metrics,
		lastUpdate:     time.Now(),
		updateInterval: 100 * time.Millisecond,
	}
}

// atualiza as métricas de performance
func (pm *PerformanceMonitor) Update() {
	now := time.Now()
	if now.Sub(pm.lastUpdate) < pm.updateInterval {
		return
	}

	currentBytes := atomic.LoadUint64(&pm.metrics.BytesReceived)
	elapsed := now.Sub(pm.lastUpdate).Seconds()

	if elapsed > 0 {
		speed := float64(currentBytes-pm.lastBytes) / elapsed
		pm.metrics.RecordSpeed(speed)
	}

	pm.lastBytes = currentBytes
	pm.lastUpdate = now
}
