package apihttp

import (
	"net"
	"net/http"
)

// MachineIPHandler reports the host's outbound network address so an
// operator can point displays at the right machine. Informational only.
type MachineIPHandler struct{}

// NewMachineIPHandler constructs a MachineIPHandler.
func NewMachineIPHandler() *MachineIPHandler {
	return &MachineIPHandler{}
}

// ServeHTTP handles GET /api/v1/machine-ip.
func (h *MachineIPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"ip": machineIP()})
}

// machineIP resolves the preferred outbound address without sending any
// traffic (UDP "connect" only assigns a local address).
func machineIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}
