package docker

import (
	"context"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/image"
)

func TestContainers(t *testing.T) {
	got := Containers([]types.Container{
		{ID: "0123456789abcdef0123", Names: []string{"/web", "/alias"}, Image: "nginx:1.25", Status: "Up 3 hours"},
		{ID: "short"},
	})
	if len(got) != 2 {
		t.Fatalf("len got %d", len(got))
	}
	if got[0].ID != "0123456789ab" || got[0].Name != "web" || got[0].Image != "nginx:1.25" || got[0].Status != "Up 3 hours" {
		t.Fatalf("container got %+v", got[0])
	}
	if got[1].ID != "short" || got[1].Name != "" {
		t.Fatalf("container without names got %+v", got[1])
	}
}

func TestImages(t *testing.T) {
	got := Images([]image.Summary{
		{ID: "sha256:abcdef0123456789ffff", RepoTags: []string{"redis:7", "localhost:5000/team/app:v2"}, Size: 117_000_000},
		{ID: "sha256:99999999999999999999", Size: 1_500},
	})
	if len(got) != 3 {
		t.Fatalf("len got %d: %+v", len(got), got)
	}
	if got[0].Repository != "redis" || got[0].Tag != "7" || got[0].ID != "abcdef012345" || got[0].Size != "117MB" {
		t.Fatalf("first image got %+v", got[0])
	}
	if got[1].Repository != "localhost:5000/team/app" || got[1].Tag != "v2" {
		t.Fatalf("registry image got %+v", got[1])
	}
	if got[2].Repository != "<none>" || got[2].Tag != "<none>" || got[2].Size != "1.5kB" {
		t.Fatalf("untagged image got %+v", got[2])
	}
}

func TestSplitReference(t *testing.T) {
	cases := []struct{ in, repo, tag string }{
		{"alpine:3.20", "alpine", "3.20"},
		{"alpine", "alpine", "latest"},
		{"localhost:5000/app", "localhost:5000/app", "latest"},
	}
	for _, c := range cases {
		repo, tag := SplitReference(c.in)
		if repo != c.repo || tag != c.tag {
			t.Fatalf("%q got %q %q want %q %q", c.in, repo, tag, c.repo, c.tag)
		}
	}
}

func TestNilClientInventory(t *testing.T) {
	var c *Client
	ok, containers, images := c.Inventory(context.Background())
	if ok || containers == nil || images == nil {
		t.Fatalf("nil client got ok=%v containers=%v images=%v", ok, containers, images)
	}
}
