package pipeline

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"relaygen/internal/graphtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var buildSources = map[string]string{
	"model/model.go": `package model

import "fmt"

type Entity struct {
	Tags []string
}

type Clock interface {
	Now() string
}

type Store interface {
	Name() string
}

type Order struct {
	Entity
	ID      string
	Clock   Clock
	Primary Store
	Replica Store
	Backup  Store
}

//relay:inject clock primary replica backup
func NewOrder(id string, clock Clock, primary Store, replica Store, backup Store) *Order {
	return &Order{ID: id, Clock: clock, Primary: primary, Replica: replica, Backup: backup}
}

type Invoice struct {
	Entity
	Total int
}

func NewInvoice(total int) (*Invoice, error) {
	if total < 0 {
		return nil, fmt.Errorf("negative total %d", total)
	}
	return &Invoice{Total: total}, nil
}
`,
	"app/factory.go": `package app

import (
	"fmt"

	"example.com/app/model"
	"relaygen/relay"
)

//relay:factory model.Entity
type Entities struct {
	services relay.Provider
	created  []string
}

func New(p relay.Provider) *Entities {
	return &Entities{services: p}
}

func (e *Entities) Created() []string {
	return e.created
}

func (e *Entities) interceptOrder(o *model.Order) *model.Order {
	o.Tags = append(o.Tags, "exact")
	return o
}

func (e *Entities) interceptAny(v any) any {
	e.created = append(e.created, fmt.Sprintf("%T", v))
	return v
}
`,
}

const demoMain = `package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"example.com/app/app"
	"example.com/app/model"
	"relaygen/relay"
)

type store string

func (s store) Name() string { return string(s) }

type clock struct{}

func (clock) Now() string { return "now" }

func check(ok bool, format string, args ...any) {
	if !ok {
		fmt.Printf(format+"\n", args...)
		os.Exit(1)
	}
}

func main() {
	reg := relay.NewRegistry()
	relay.Register[model.Clock](reg, clock{})
	relay.Register[model.Store](reg, store("a"))
	relay.Register[model.Store](reg, store("b"))
	f := app.New(reg)

	o, err := f.CreateOrder("o-1")
	check(err == nil, "CreateOrder: %v", err)
	check(o.ID == "o-1", "id %q", o.ID)
	check(o.Clock.Now() == "now", "clock not injected")
	got := o.Primary.Name() + o.Replica.Name() + o.Backup.Name()
	check(got == "aba", "stores %q", got)
	check(strings.Join(o.Tags, ",") == "exact", "tags %v", o.Tags)

	inv, err := f.CreateInvoice(5)
	check(err == nil && inv.Total == 5, "CreateInvoice: %v", err)
	_, err = f.CreateInvoice(-1)
	check(err != nil && strings.Contains(err.Error(), "negative total"), "constructor error lost: %v", err)

	created := strings.Join(f.Created(), ",")
	check(created == "*model.Order,*model.Invoice", "object hook saw %q", created)

	_, err = app.New(relay.NewRegistry()).CreateOrder("x")
	check(errors.Is(err, relay.ErrNoService), "empty provider: %v", err)

	onlyClock := relay.NewRegistry()
	relay.Register[model.Clock](onlyClock, clock{})
	_, err = app.New(onlyClock).CreateOrder("x")
	check(err != nil && strings.Contains(err.Error(), "no service for type 'model.Store'"), "first slot: %v", err)

	fmt.Println("ok")
}
`

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
}

// copyRuntime places the relay package in a local module the test module replaces relaygen with.
func copyRuntime(t *testing.T, dst string) {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join("..", "..", "relay"))
	require.NoError(t, err)

	files := map[string]string{"go.mod": "module relaygen\n\ngo 1.22\n"}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		data, err := os.ReadFile(filepath.Join("..", "..", "relay", name))
		require.NoError(t, err)
		files[filepath.Join("relay", name)] = string(data)
	}
	writeTree(t, dst, files)
}

func TestRun_GeneratedCodeBuildsAndRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a module with the go command")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go command not available")
	}

	root := t.TempDir()
	writeTree(t, root, buildSources)
	writeTree(t, root, map[string]string{
		"go.mod":           "module example.com/app\n\ngo 1.22\n\nrequire relaygen v0.0.0\n\nreplace relaygen => ./relaygen\n",
		"cmd/demo/main.go": demoMain,
	})
	copyRuntime(t, filepath.Join(root, "relaygen"))

	g := graphtest.Build(t, buildSources)
	report, err := NewEngine().Run(context.Background(), g, Options{Root: root})
	require.NoError(t, err)
	require.False(t, report.HasErrors(), "%v", report.Diagnostics)

	res := byFactory(report)["Entities"]
	require.Equal(t, StatusWritten, res.Status)
	require.Equal(t, 2, res.Bindings)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	cmd := exec.CommandContext(ctx, goBin, "run", "./cmd/demo")
	cmd.Dir = root
	cmd.Env = append(os.Environ(), "GOWORK=off", "GOFLAGS=-mod=mod", "GOPROXY=off", "GOTOOLCHAIN=local")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "generated code failed:\n%s", out)
	assert.Equal(t, "ok", strings.TrimSpace(string(out)))
}
