package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/loader"
	"github.com/Carmen-Shannon/oxy-view/engine/node"
	"github.com/Carmen-Shannon/oxy-view/engine/orchestrator"
	"github.com/Carmen-Shannon/oxy-view/engine/probe"
	"github.com/Carmen-Shannon/oxy-view/engine/session"
	"github.com/Carmen-Shannon/oxy-view/internal/config"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spf13/cobra"
)

// summary describes a loaded asset.
type summary struct {
	Meshes    int
	Vertices  int
	Triangles int
	Materials int
	Textures  int
	Size      mgl32.Vec3
}

func summarize(root *node.Node) summary {
	var s summary
	materials := make(map[*node.Material]bool)
	node.Walk(root, mgl32.Ident4(), func(n *node.Node, _ mgl32.Mat4) bool {
		if n.Kind() != node.KindMesh {
			return n.Kind() != node.KindHelper
		}
		s.Meshes++
		g := n.Mesh().Geometry
		if g != nil {
			s.Vertices += len(g.Positions)
			if g.Topology == node.TopologyTriangles {
				s.Triangles += g.IndexCount() / 3
			}
		}
		for _, m := range n.Mesh().Materials {
			materials[m] = true
		}
		return true
	})
	s.Materials = len(materials)
	_, textures := node.Resources(root)
	seen := make(map[*node.Texture]bool, len(textures))
	for _, t := range textures {
		seen[t] = true
	}
	s.Textures = len(seen)
	if b := node.WorldBounds(root); !b.IsEmpty() {
		s.Size = b.Size()
	}
	return s
}

func newInspectCmd(cfg *config.Config) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "inspect <asset>",
		Short: "Load an asset headlessly and report its contents and framing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return inspect(ctx, *cfg, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Give up after this long")
	return cmd
}

func inspect(ctx context.Context, cfg config.Config, name string, out io.Writer) error {
	sess := session.New("inspect")
	defer sess.Teardown()

	opts := []orchestrator.OrchestratorOption{
		orchestrator.WithHelpers(false),
		orchestrator.WithMargin(float32(cfg.Margin)),
	}
	if !cfg.SkipProbe {
		opts = append(opts, orchestrator.WithProber(probe.NewProber(probe.WithTimeout(cfg.ProbeTimeout()))))
	}
	cam := camera.NewCamera(camera.WithAspect(float32(cfg.Width) / float32(cfg.Height)))
	orch := orchestrator.New(sess, loader.NewLoader(loader.BackendTypeGLTF), cam, opts...)

	res := orch.Load(ctx, refFunc(cfg)(name))
	if !res.OK() {
		fmt.Fprintf(out, "%s: %s\n", name, sess.Status())
		return res.Err
	}

	s := summarize(res.Object)
	fmt.Fprintf(out, "asset:      %s\n", res.Ref.Name())
	fmt.Fprintf(out, "url:        %s\n", res.Ref.ManualURL())
	fmt.Fprintf(out, "retries:    %d\n", res.Retries)
	fmt.Fprintf(out, "meshes:     %d\n", s.Meshes)
	fmt.Fprintf(out, "vertices:   %d\n", s.Vertices)
	fmt.Fprintf(out, "triangles:  %d\n", s.Triangles)
	fmt.Fprintf(out, "materials:  %d\n", s.Materials)
	fmt.Fprintf(out, "textures:   %d\n", s.Textures)
	fmt.Fprintf(out, "fit size:   %.3f x %.3f x %.3f\n", s.Size.X(), s.Size.Y(), s.Size.Z())
	if res.Frame.Applied {
		fmt.Fprintf(out, "distance:   %.3f\n", res.Frame.Distance)
		fmt.Fprintf(out, "clip:       %.4f .. %.1f\n", res.Frame.Near, res.Frame.Far)
	} else {
		fmt.Fprintln(out, "framing:    degenerate geometry, default camera kept")
	}
	return nil
}
