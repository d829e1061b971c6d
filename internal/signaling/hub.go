package signaling

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub is a signaling server: it registers clients and relays offers,
// answers and ICE candidates between them.
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	peers map[string]*hubPeer
}

type hubPeer struct {
	id   string
	role string
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (p *hubPeer) send(msg Message) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	return p.conn.WriteJSON(msg)
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger: logger.Named("hub"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		peers: make(map[string]*hubPeer),
	}
}

// Publishers lists the registered publishers sorted by id.
func (h *Hub) Publishers() []PublisherInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.publishersLocked()
}

func (h *Hub) publishersLocked() []PublisherInfo {
	var out []PublisherInfo
	for _, p := range h.peers {
		if p.role == RolePublisher {
			out = append(out, PublisherInfo{ID: p.id, Online: true})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	var reg Message
	if err := conn.ReadJSON(&reg); err != nil || reg.Type != TypeRegister {
		_ = conn.WriteJSON(Message{Type: TypeError, Msg: "expected register"})
		return
	}
	p, err := h.register(reg, conn)
	if err != nil {
		_ = conn.WriteJSON(Message{Type: TypeError, Msg: err.Error()})
		return
	}
	defer h.unregister(p)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			h.logger.Debug("peer left", zap.String("id", p.id), zap.Error(err))
			return
		}
		h.handle(p, msg)
	}
}

func (h *Hub) register(reg Message, conn *websocket.Conn) (*hubPeer, error) {
	if reg.Role != RolePublisher && reg.Role != RoleViewer {
		return nil, fmt.Errorf("unknown role %q", reg.Role)
	}
	id := reg.ID
	if id == "" {
		id = reg.Role + "-" + uuid.NewString()[:8]
	}
	p := &hubPeer{id: id, role: reg.Role, conn: conn}

	h.mu.Lock()
	if _, taken := h.peers[id]; taken {
		h.mu.Unlock()
		return nil, fmt.Errorf("id %q already registered", id)
	}
	h.peers[id] = p
	h.mu.Unlock()

	h.logger.Info("peer registered", zap.String("id", id), zap.String("role", reg.Role))
	if err := p.send(Message{Type: TypeRegistered, ID: id}); err != nil {
		h.unregister(p)
		return nil, err
	}
	if p.role == RolePublisher {
		h.broadcastPublishers()
	}
	return p, nil
}

func (h *Hub) unregister(p *hubPeer) {
	h.mu.Lock()
	if h.peers[p.id] == p {
		delete(h.peers, p.id)
	}
	h.mu.Unlock()

	if p.role == RolePublisher {
		h.toViewers(Message{Type: TypePublisherGone, Publisher: p.id})
	}
}

func (h *Hub) handle(from *hubPeer, msg Message) {
	switch msg.Type {
	case TypePing:
		_ = from.send(Message{Type: TypePong, Timestamp: msg.Timestamp})
	case TypeListPublishers:
		_ = from.send(Message{Type: TypePublishers, List: h.Publishers()})
	case TypeOffer, TypeAnswer, TypeICECandidate:
		h.mu.Lock()
		to := h.peers[msg.Target]
		h.mu.Unlock()
		if to == nil {
			_ = from.send(Message{Type: TypeError, Msg: fmt.Sprintf("unknown target %q", msg.Target)})
			return
		}
		msg.From, msg.Target = from.id, ""
		if err := to.send(msg); err != nil {
			h.logger.Warn("relay failed", zap.String("to", to.id), zap.Error(err))
		}
	default:
		_ = from.send(Message{Type: TypeError, Msg: fmt.Sprintf("unsupported message %q", msg.Type)})
	}
}

func (h *Hub) broadcastPublishers() {
	h.toViewers(Message{Type: TypePublishersUpdated, List: h.Publishers()})
}

func (h *Hub) toViewers(msg Message) {
	h.mu.Lock()
	var viewers []*hubPeer
	for _, p := range h.peers {
		if p.role == RoleViewer {
			viewers = append(viewers, p)
		}
	}
	h.mu.Unlock()
	for _, v := range viewers {
		_ = v.send(msg)
	}
}
