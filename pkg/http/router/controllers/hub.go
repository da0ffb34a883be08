package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/spf13/viper"

	"github.com/opennavx/navsim/pkg/simulation"
)

type wsCommand struct {
	Action         string               `json:"action" validate:"required,oneof=start obstacle cancel"`
	OriginLat      float64              `json:"origin_lat"`
	OriginLon      float64              `json:"origin_lon"`
	DestinationLat float64              `json:"destination_lat"`
	DestinationLon float64              `json:"destination_lon"`
	Scenario       string               `json:"scenario"`
	Algorithm      string               `json:"algorithm"`
	SimulationId   string               `json:"simulation_id"`
	Obstacles      []obstacleCoordinate `json:"obstacles"`
}

type User struct {
	io   sync.Mutex
	conn io.ReadWriteCloser

	id  uint
	hub *Hub

	streamMu sync.Mutex
	done     chan struct{}
}

func (u *User) readCommand() (*wsCommand, error) {
	u.io.Lock()
	defer u.io.Unlock()

	h, r, err := wsutil.NextReader(u.conn, ws.StateServerSide)
	if err != nil {
		return nil, err
	}
	if h.OpCode.IsControl() {
		return nil, wsutil.ControlFrameHandler(u.conn, ws.StateServerSide)(h, r)
	}

	cmd := &wsCommand{}
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// HandleCommand reads the next client command and dispatches it. start
// launches the simulation and begins streaming ticks, obstacle forwards road
// blocks, cancel tears the simulation down.
func (u *User) HandleCommand() error {
	cmd, err := u.readCommand()
	if err != nil {
		u.conn.Close()
		return err
	}

	if cmd == nil {
		return nil
	}

	if errResp := validateCommand(cmd); errResp != nil {
		return u.write(errResp)
	}

	switch cmd.Action {
	case "start":
		return u.handleStart(cmd)
	case "obstacle":
		return u.handleObstacle(cmd)
	default:
		return u.handleCancel(cmd)
	}
}

func validateCommand(cmd *wsCommand) envelope {
	validate := validator.New()

	if err := validate.Struct(cmd); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		vvString := []string{}
		for _, v := range vv {
			vvString = append(vvString, v.Error())
		}
		return envelope{"error": map[string]string{
			"code":    http.StatusText(http.StatusBadRequest),
			"message": fmt.Sprintf("validation error: %v", vvString),
		}}
	}
	return nil
}

func (u *User) handleStart(cmd *wsCommand) error {
	sim, pathPolyline, err := u.hub.simulationService.StartSimulation(
		cmd.OriginLat, cmd.OriginLon, cmd.DestinationLat, cmd.DestinationLon,
		cmd.Scenario, cmd.Algorithm)
	if err != nil {
		return u.writeError(err)
	}

	if err := u.write(envelope{"data": NewStartSimulationResponse(sim.Id(), sim.Route(), pathPolyline)}); err != nil {
		return err
	}

	u.startStream(sim.Id())
	return nil
}

func (u *User) handleObstacle(cmd *wsCommand) error {
	req := injectObstacleRequest{Obstacles: cmd.Obstacles}
	frozen, err := u.hub.simulationService.InjectObstacle(cmd.SimulationId, req.ToCoordinates())
	if err != nil {
		return u.writeError(err)
	}
	return u.write(envelope{"data": injectObstacleResponse{Frozen: frozen}})
}

func (u *User) handleCancel(cmd *wsCommand) error {
	u.stopStream()
	if err := u.hub.simulationService.CancelSimulation(cmd.SimulationId); err != nil {
		return u.writeError(err)
	}
	return u.write(envelope{"data": "simulation cancelled"})
}

// startStream pushes the vehicle snapshot on every tick until arrival, cancel
// or disconnect. only one stream per connection.
func (u *User) startStream(simulationId string) {
	interval := viper.GetDuration("simulation.tick_interval")
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	u.streamMu.Lock()
	if u.done != nil {
		close(u.done)
	}
	done := make(chan struct{})
	u.done = done
	u.streamMu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				state, err := u.hub.simulationService.SimulationState(simulationId)
				if err != nil {
					_ = u.writeError(err)
					return
				}
				if err := u.write(envelope{"data": state}); err != nil {
					return
				}
				if state.Phase == simulation.PhaseArrived {
					return
				}
			}
		}
	}()
}

func (u *User) stopStream() {
	u.streamMu.Lock()
	if u.done != nil {
		close(u.done)
		u.done = nil
	}
	u.streamMu.Unlock()
}

func (u *User) writeError(err error) error {
	return u.write(envelope{"error": map[string]string{
		"code":    http.StatusText(http.StatusUnprocessableEntity),
		"message": err.Error(),
	}})
}

func (u *User) write(x interface{}) error {
	w := wsutil.NewWriter(u.conn, ws.StateServerSide, ws.OpText)
	encoder := json.NewEncoder(w)

	u.io.Lock()
	defer u.io.Unlock()

	if err := encoder.Encode(x); err != nil {
		return err
	}

	return w.Flush()
}

type Hub struct {
	mu  sync.RWMutex
	seq uint
	us  []*User
	ns  map[uint]*User

	simulationService SimulationService
}

func NewHub(simulationService SimulationService) *Hub {
	return &Hub{
		ns:                make(map[uint]*User),
		us:                make([]*User, 0),
		simulationService: simulationService,
	}
}

func (h *Hub) Register(conn net.Conn) *User {
	user := &User{
		hub:  h,
		conn: conn,
	}

	h.mu.Lock()
	user.id = h.seq
	h.ns[user.id] = user
	h.us = append(h.us, user)

	h.seq++
	h.mu.Unlock()

	return user
}

func (h *Hub) Remove(user *User) {
	user.stopStream()

	h.mu.Lock()
	if _, oki := h.ns[user.id]; !oki {
		h.mu.Unlock()
		return
	}
	delete(h.ns, user.id)

	i := sort.Search(len(h.us), func(i int) bool {
		return h.us[i].id >= user.id
	})

	newUs := make([]*User, len(h.us)-1)
	copy(newUs[:i], h.us[:i])
	copy(newUs[i:], h.us[i+1:])
	h.us = newUs

	h.mu.Unlock()
}

func (h *Hub) RemoveAllUser() {
	h.mu.RLock()
	users := make([]*User, len(h.us))
	copy(users, h.us)
	h.mu.RUnlock()

	for _, user := range users {
		h.Remove(user)
	}
}
