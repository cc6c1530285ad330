package docker

import (
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/image"
	units "github.com/docker/go-units"

	"pulse/internal/models"
)

const none = "<none>"

// Containers maps SDK summaries to frame entries the way `docker ps` prints
// them: short ids and the primary name without its leading slash.
func Containers(list []types.Container) []models.Container {
	out := make([]models.Container, 0, len(list))
	for _, c := range list {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		out = append(out, models.Container{
			ID:     ShortID(c.ID),
			Name:   name,
			Image:  c.Image,
			Status: c.Status,
		})
	}
	return out
}

// Images yields one entry per repository tag, or a single <none> entry for
// untagged images, matching `docker images`.
func Images(list []image.Summary) []models.Image {
	out := make([]models.Image, 0, len(list))
	for _, img := range list {
		size := units.HumanSizeWithPrecision(float64(img.Size), 3)
		id := ShortID(img.ID)
		tags := img.RepoTags
		if len(tags) == 0 {
			tags = []string{none + ":" + none}
		}
		for _, ref := range tags {
			repo, tag := SplitReference(ref)
			out = append(out, models.Image{Repository: repo, Tag: tag, ID: id, Size: size})
		}
	}
	return out
}

// SplitReference separates "repo:tag", leaving registry ports alone.
func SplitReference(ref string) (repo, tag string) {
	i := strings.LastIndex(ref, ":")
	if i < 0 || strings.Contains(ref[i+1:], "/") {
		return ref, "latest"
	}
	return ref[:i], ref[i+1:]
}

func ShortID(id string) string {
	id = strings.TrimPrefix(id, "sha256:")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
