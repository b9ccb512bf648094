// Package monitoring exposes a running MMU check over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/sarchlab/radixmmu/mem/vm"
	"github.com/sarchlab/radixmmu/mem/vm/tlb"
	"github.com/sarchlab/radixmmu/mmutest"
	"github.com/sarchlab/radixmmu/sim"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// ResultSource provides the results reported so far.
type ResultSource interface {
	Results() []mmutest.Result
}

// MappingSource lists the live mappings of a page table.
type MappingSource interface {
	Mappings() []vm.VAddr
	Lookup(v vm.VAddr) (vm.PTE, bool)
}

// TLBSource exposes the contents of a TLB.
type TLBSource interface {
	NumSets() int
	NumWays() int
	Stats() tlb.Stats
	Snapshot() []tlb.EntryInfo
}

// RegisterSource dumps special purpose registers by name.
type RegisterSource interface {
	Dump() map[string]uint64
}

// Monitor serves the state of an MMU check as a small JSON API.
type Monitor struct {
	portNumber int
	server     *http.Server

	components []sim.Named
	results    ResultSource
	mappings   MappingSource
	tlb        TLBSource
	registers  RegisterSource

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterComponent registers a component that can be inspected by name.
func (m *Monitor) RegisterComponent(c sim.Named) {
	m.components = append(m.components, c)
}

// RegisterResults sets where test results are read from.
func (m *Monitor) RegisterResults(s ResultSource) {
	m.results = s
}

// RegisterMappings sets the page table to report mappings of.
func (m *Monitor) RegisterMappings(s MappingSource) {
	m.mappings = s
}

// RegisterTLB sets the TLB to report.
func (m *Monitor) RegisterTLB(s TLBSource) {
	m.tlb = s
}

// RegisterRegisters sets the register file to report.
func (m *Monitor) RegisterRegisters(s RegisterSource) {
	m.registers = s
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        sim.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the progress list.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// TrackRunner shows the progress of the runner's tests as a progress bar.
func (m *Monitor) TrackRunner(r *mmutest.Runner) *ProgressBar {
	bar := m.CreateProgressBar(r.Name(), uint64(len(r.Tests())))
	r.AcceptHook(&runnerProgressHook{bar: bar})

	return bar
}

type runnerProgressHook struct {
	bar *ProgressBar
}

func (h *runnerProgressHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case mmutest.HookPosEnterState:
		if ctx.Item == mmutest.StateSetup {
			h.bar.IncrementInProgress(1)
		}
	case mmutest.HookPosResult:
		h.bar.MoveInProgressToFinished(1)
	}
}

// Router returns the handler of all the API routes.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/results", m.listResults)
	r.HandleFunc("/api/mappings", m.listMappings)
	r.HandleFunc("/api/tlb", m.listTLB)
	r.HandleFunc("/api/tlb/sets", m.listTLBSets)
	r.HandleFunc("/api/registers", m.listRegisters)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts serving the API and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring MMU check with %s\n", url)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Panic(err)
		}
	}()

	return url, nil
}

// StopServer shuts the server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

// OpenInBrowser opens url with the system browser.
func OpenInBrowser(url string) error {
	return browser.OpenURL(url)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.components))
	for _, c := range m.components {
		names = append(names, c.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	component := m.findComponentOr404(w, req.CompName)
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) sim.Named {
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Component not found"))
	dieOnErr(err)

	return nil
}

type resultRsp struct {
	Number int       `json:"number"`
	Name   string    `json:"name"`
	Status string    `json:"status"`
	Code   int       `json:"code"`
	Error  string    `json:"error,omitempty"`
	Class  string    `json:"class"`
	Diag   [2]string `json:"diag"`
	Line   string    `json:"line"`
}

func (m *Monitor) listResults(w http.ResponseWriter, _ *http.Request) {
	if m.results == nil {
		http.Error(w, "no results registered", http.StatusNotFound)
		return
	}

	rsp := []resultRsp{}

	for _, res := range m.results.Results() {
		entry := resultRsp{
			Number: res.Number,
			Name:   res.Name,
			Status: res.Status(),
			Code:   res.Code,
			Class:  res.Class.String(),
			Diag:   [2]string{hex(res.Diag[0]), hex(res.Diag[1])},
			Line:   res.String(),
		}

		if res.Err != nil {
			entry.Error = res.Err.Error()
		}

		rsp = append(rsp, entry)
	}

	writeJSON(w, rsp)
}

type mappingRsp struct {
	VAddr string `json:"vaddr"`
	PTE   string `json:"pte"`
}

func (m *Monitor) listMappings(w http.ResponseWriter, _ *http.Request) {
	if m.mappings == nil {
		http.Error(w, "no page table registered", http.StatusNotFound)
		return
	}

	rsp := []mappingRsp{}

	for _, v := range m.mappings.Mappings() {
		entry := mappingRsp{VAddr: hex(uint64(v))}

		if pte, ok := m.mappings.Lookup(v); ok {
			entry.PTE = pte.String()
		}

		rsp = append(rsp, entry)
	}

	writeJSON(w, rsp)
}

type tlbRsp struct {
	NumSets int             `json:"num_sets"`
	NumWays int             `json:"num_ways"`
	Stats   tlb.Stats       `json:"stats"`
	Entries []tlb.EntryInfo `json:"entries"`
}

func (m *Monitor) listTLB(w http.ResponseWriter, _ *http.Request) {
	if m.tlb == nil {
		http.Error(w, "no TLB registered", http.StatusNotFound)
		return
	}

	rsp := tlbRsp{
		NumSets: m.tlb.NumSets(),
		NumWays: m.tlb.NumWays(),
		Stats:   m.tlb.Stats(),
		Entries: m.tlb.Snapshot(),
	}
	if rsp.Entries == nil {
		rsp.Entries = []tlb.EntryInfo{}
	}

	writeJSON(w, rsp)
}

type setOccupancy struct {
	Set   int `json:"set"`
	Level int `json:"level"`
	Cap   int `json:"cap"`
}

func (m *Monitor) listTLBSets(w http.ResponseWriter, r *http.Request) {
	if m.tlb == nil {
		http.Error(w, "no TLB registered", http.StatusNotFound)
		return
	}

	sortMethod, limit, offset, err := m.setsParseParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	writeJSON(w, m.sortAndSelectSets(sortMethod, limit, offset))
}

func (*Monitor) setsParseParams(
	r *http.Request,
) (sort string, limit, offset int, err error) {
	sortMethod := r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "level"
	}

	if sortMethod != "level" && sortMethod != "set" {
		return "", 0, 0, fmt.Errorf(
			"invalid sort method: %s, allowed values are `level` and `set`",
			sortMethod)
	}

	limit, err = intParam(r, "limit")
	if err != nil {
		return sortMethod, 0, 0, err
	}

	offset, err = intParam(r, "offset")
	if err != nil {
		return sortMethod, limit, 0, err
	}

	return sortMethod, limit, offset, nil
}

func intParam(r *http.Request, key string) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}

	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}

	return n, nil
}

// sortAndSelectSets returns the sets ordered by sortMethod. A zero limit
// means no limit.
func (m *Monitor) sortAndSelectSets(
	sortMethod string,
	limit, offset int,
) []setOccupancy {
	sets := make([]setOccupancy, m.tlb.NumSets())
	for i := range sets {
		sets[i] = setOccupancy{Set: i, Cap: m.tlb.NumWays()}
	}

	for _, e := range m.tlb.Snapshot() {
		sets[e.Set].Level++
	}

	if sortMethod == "level" {
		sort.SliceStable(sets, func(i, j int) bool {
			return sets[i].Level > sets[j].Level
		})
	}

	if offset > len(sets) {
		offset = len(sets)
	}

	sets = sets[offset:]

	if limit > 0 && limit < len(sets) {
		sets = sets[:limit]
	}

	return sets
}

func (m *Monitor) listRegisters(w http.ResponseWriter, _ *http.Request) {
	if m.registers == nil {
		http.Error(w, "no registers registered", http.StatusNotFound)
		return
	}

	rsp := make(map[string]string)
	for name, value := range m.registers.Dump() {
		rsp[name] = hex(value)
	}

	writeJSON(w, rsp)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func hex(v uint64) string {
	return fmt.Sprintf("%016x", v)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
