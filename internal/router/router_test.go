package router

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kilnhq/kilnd/internal/build"
	"github.com/kilnhq/kilnd/internal/isolation"
	"github.com/kilnhq/kilnd/internal/network"
	"github.com/kilnhq/kilnd/internal/protocol"
	"github.com/kilnhq/kilnd/internal/runtime"
	"github.com/kilnhq/kilnd/internal/volume"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	root := t.TempDir()
	images := build.NewStore()
	provisioner := isolation.New(root)
	networks := network.NewStore()
	volumes := volume.NewStore(root)

	return New(Config{
		Builder:     build.NewBuilder(images),
		Images:      images,
		Provisioner: provisioner,
		Runtime: runtime.New(runtime.Config{
			Images:      images,
			Provisioner: provisioner,
			Networks:    networks,
			Volumes:     volumes,
		}),
		Networks: networks,
		Volumes:  volumes,
	})
}

func mustPayload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestDispatchBuildAndList(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	outcome := r.Dispatch(ctx, OpBuildImage, mustPayload(t, protocol.BuildImageRequest{
		Ref:    "web:v1",
		Source: "FROM alpine\nEXPOSE 8080",
	}))
	if !outcome.Success {
		t.Fatalf("build_image failed: %v", outcome.Err)
	}
	if outcome.Subsystem != SubsystemImage {
		t.Fatalf("Subsystem = %s, want image", outcome.Subsystem)
	}
	img, ok := outcome.Result.(*build.Image)
	if !ok {
		t.Fatalf("Result is %T, want *build.Image", outcome.Result)
	}
	if len(img.Layers) != 2 {
		t.Fatalf("len(Layers) = %d, want 2", len(img.Layers))
	}

	outcome = r.Dispatch(ctx, OpListImages, nil)
	if !outcome.Success {
		t.Fatalf("list_images failed: %v", outcome.Err)
	}
	if images := outcome.Result.([]*build.Image); len(images) != 1 {
		t.Fatalf("len(images) = %d, want 1", len(images))
	}

	metrics := r.Metrics()
	if metrics[SubsystemImage].Operations != 2 {
		t.Fatalf("image operations = %d, want 2", metrics[SubsystemImage].Operations)
	}
}

func TestDispatchUnknownOp(t *testing.T) {
	r := newTestRouter(t)

	outcome := r.Dispatch(context.Background(), Op("not_a_real_op"), nil)
	if outcome.Success {
		t.Fatal("unknown op reported success")
	}
	if !errors.Is(outcome.Err, ErrNoRoute) {
		t.Fatalf("Err = %v, want ErrNoRoute", outcome.Err)
	}
	if outcome.Subsystem != "" {
		t.Fatalf("Subsystem = %q, want empty", outcome.Subsystem)
	}

	// No subsystem owned the operation, so nothing is counted.
	if len(r.Metrics()) != 0 {
		t.Fatalf("metrics = %v, want empty", r.Metrics())
	}
}

func TestDispatchRunLifecycle(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	if outcome := r.Dispatch(ctx, OpPullImage, mustPayload(t, protocol.PullImageRequest{Ref: "alpine"})); !outcome.Success {
		t.Fatalf("pull_image failed: %v", outcome.Err)
	}

	outcome := r.Dispatch(ctx, OpRunContainer, mustPayload(t, protocol.RunContainerRequest{Image: "alpine"}))
	if !outcome.Success {
		t.Fatalf("run_container failed: %v", outcome.Err)
	}
	s := outcome.Result.(runtime.Summary)
	if s.Status != runtime.StatusRunning {
		t.Fatalf("Status = %s, want running: %s", s.Status, s.FailureReason)
	}

	outcome = r.Dispatch(ctx, OpStopContainer, mustPayload(t, protocol.ContainerRequest{ID: s.ID}))
	if !outcome.Success {
		t.Fatalf("stop_container failed: %v", outcome.Err)
	}

	outcome = r.Dispatch(ctx, OpListContainers, mustPayload(t, protocol.ListContainersRequest{All: true}))
	if !outcome.Success {
		t.Fatalf("list_containers failed: %v", outcome.Err)
	}
	if got := outcome.Result.([]runtime.Summary); len(got) != 1 || got[0].Status != runtime.StatusStopped {
		t.Fatalf("list = %+v, want one stopped container", got)
	}

	metrics := r.Metrics()
	if metrics[SubsystemRuntime].Operations != 3 {
		t.Fatalf("runtime operations = %d, want 3", metrics[SubsystemRuntime].Operations)
	}
	if metrics[SubsystemImage].Operations != 1 {
		t.Fatalf("image operations = %d, want 1", metrics[SubsystemImage].Operations)
	}
}

func TestDispatchIsolatePartialFailure(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	// Occupy one namespace name; the isolate operation then partially fails.
	if outcome := r.Dispatch(ctx, OpCreateNamespace, mustPayload(t, protocol.CreateNamespaceRequest{
		Type: "network",
		Name: "c1-network",
	})); !outcome.Success {
		t.Fatalf("create_namespace failed: %v", outcome.Err)
	}

	outcome := r.Dispatch(ctx, OpIsolate, mustPayload(t, protocol.IsolateContainerRequest{ContainerID: "c1"}))
	if outcome.Success {
		t.Fatal("isolate_container succeeded, want partial failure")
	}
	if !errors.Is(outcome.Err, isolation.ErrPartialIsolation) {
		t.Fatalf("Err = %v, want ErrPartialIsolation", outcome.Err)
	}

	// The outcome still carries the per-step results.
	result := outcome.Result.(*isolation.Result)
	if len(result.Namespaces) != 2 {
		t.Fatalf("len(Namespaces) = %d, want 2", len(result.Namespaces))
	}

	if got := r.Metrics()[SubsystemIsolation].Operations; got != 2 {
		t.Fatalf("isolation operations = %d, want 2", got)
	}
}

func TestDispatchNetworkAndVolumeOps(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	if outcome := r.Dispatch(ctx, OpCreateNetwork, mustPayload(t, protocol.CreateNetworkRequest{Name: "front"})); !outcome.Success {
		t.Fatalf("create_network failed: %v", outcome.Err)
	}
	if outcome := r.Dispatch(ctx, OpCreateVolume, mustPayload(t, protocol.CreateVolumeRequest{Name: "data"})); !outcome.Success {
		t.Fatalf("create_volume failed: %v", outcome.Err)
	}
	if outcome := r.Dispatch(ctx, OpConnect, mustPayload(t, protocol.ConnectContainerRequest{Network: "front", ContainerID: "c1"})); !outcome.Success {
		t.Fatalf("connect_container failed: %v", outcome.Err)
	}
	if outcome := r.Dispatch(ctx, OpRemoveVolume, mustPayload(t, protocol.VolumeRequest{Name: "data"})); !outcome.Success {
		t.Fatalf("remove_volume failed: %v", outcome.Err)
	}

	metrics := r.Metrics()
	if metrics[SubsystemNetwork].Operations != 2 {
		t.Fatalf("network operations = %d, want 2", metrics[SubsystemNetwork].Operations)
	}
	if metrics[SubsystemStorage].Operations != 2 {
		t.Fatalf("storage operations = %d, want 2", metrics[SubsystemStorage].Operations)
	}
	if metrics[SubsystemStorage].AverageTime() < 0 {
		t.Fatal("negative average time")
	}
}

// Observer recording every outcome it sees.
type recordingObserver struct {
	outcomes []Outcome
}

func (o *recordingObserver) OperationComplete(outcome Outcome) {
	o.outcomes = append(o.outcomes, outcome)
}

func TestObserverSeesEveryDispatch(t *testing.T) {
	r := newTestRouter(t)
	obs := &recordingObserver{}
	r.Observe(obs)

	ctx := context.Background()
	r.Dispatch(ctx, OpListImages, nil)
	r.Dispatch(ctx, Op("bogus"), nil)

	if len(obs.outcomes) != 2 {
		t.Fatalf("observer saw %d outcomes, want 2", len(obs.outcomes))
	}
	if obs.outcomes[0].Op != OpListImages || !obs.outcomes[0].Success {
		t.Fatalf("outcomes[0] = %+v", obs.outcomes[0])
	}
	if obs.outcomes[1].Success {
		t.Fatal("bogus op reported success to observer")
	}
}

func TestDispatchMalformedPayload(t *testing.T) {
	r := newTestRouter(t)

	outcome := r.Dispatch(context.Background(), OpBuildImage, json.RawMessage(`{"ref": 42}`))
	if outcome.Success {
		t.Fatal("malformed payload reported success")
	}
	if !errors.Is(outcome.Err, protocol.ErrMalformed) {
		t.Fatalf("Err = %v, want ErrMalformed", outcome.Err)
	}
}
