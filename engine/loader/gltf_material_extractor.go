package loader

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strings"

	"github.com/Carmen-Shannon/oxy-view/engine/node"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/nfnt/resize"
	"github.com/qmuntal/gltf"
)

const unlitExtension = "KHR_materials_unlit"

var defaultBaseColor = mgl32.Vec4{0.8, 0.8, 0.8, 1}

// gltfMaterialExtractor converts glTF materials into node materials. Materials
// and textures are cached by index so primitives that share them in the file
// share them in the graph as well.
type gltfMaterialExtractor struct {
	doc            *gltf.Document
	fsys           fs.FS
	maxTextureSize int

	materials map[int]*node.Material
	textures  map[int]*node.Texture
	fallback  *node.Material
}

func newGLTFMaterialExtractor(doc *gltf.Document, fsys fs.FS, maxTextureSize int) *gltfMaterialExtractor {
	return &gltfMaterialExtractor{
		doc:            doc,
		fsys:           fsys,
		maxTextureSize: maxTextureSize,
		materials:      make(map[int]*node.Material),
		textures:       make(map[int]*node.Texture),
	}
}

// material returns the material at idx, or a shared grey default when idx is
// nil or out of range.
func (e *gltfMaterialExtractor) material(idx *int) *node.Material {
	if idx == nil || *idx < 0 || *idx >= len(e.doc.Materials) {
		if e.fallback == nil {
			e.fallback = &node.Material{Name: "default", BaseColor: defaultBaseColor}
		}
		return e.fallback
	}
	if m, ok := e.materials[*idx]; ok {
		return m
	}

	src := e.doc.Materials[*idx]
	m := &node.Material{Name: src.Name, BaseColor: defaultBaseColor}
	if _, ok := src.Extensions[unlitExtension]; ok {
		m.Unlit = true
	}
	if pbr := src.PBRMetallicRoughness; pbr != nil {
		if f := pbr.BaseColorFactor; f != nil {
			m.BaseColor = mgl32.Vec4{float32(f[0]), float32(f[1]), float32(f[2]), float32(f[3])}
		}
		if info := pbr.BaseColorTexture; info != nil {
			tex, err := e.texture(info.Index)
			if err != nil {
				zlog.Warn().Err(err).Str("material", src.Name).Int("texture", info.Index).Msg("base color texture skipped")
			} else {
				m.BaseMap = tex
			}
		}
	}
	e.materials[*idx] = m
	return m
}

func (e *gltfMaterialExtractor) texture(idx int) (*node.Texture, error) {
	if t, ok := e.textures[idx]; ok {
		return t, nil
	}
	if idx < 0 || idx >= len(e.doc.Textures) {
		return nil, fmt.Errorf("texture index %d out of range", idx)
	}
	src := e.doc.Textures[idx]
	if src.Source == nil {
		return nil, fmt.Errorf("texture %d has no image source", idx)
	}
	imgIdx := *src.Source
	if imgIdx < 0 || imgIdx >= len(e.doc.Images) {
		return nil, fmt.Errorf("image index %d out of range", imgIdx)
	}
	img := e.doc.Images[imgIdx]

	data, err := e.imageBytes(img)
	if err != nil {
		return nil, err
	}
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %d: %w", imgIdx, err)
	}
	rgba := e.toRGBA(decoded)

	t := &node.Texture{
		Name:   img.Name,
		Width:  rgba.Rect.Dx(),
		Height: rgba.Rect.Dy(),
		Pixels: rgba.Pix,
	}
	e.textures[idx] = t
	return t, nil
}

// imageBytes returns the encoded image from a buffer view, a data URI or a
// file relative to the document.
func (e *gltfMaterialExtractor) imageBytes(img *gltf.Image) ([]byte, error) {
	switch {
	case img.BufferView != nil:
		return e.readBufferView(*img.BufferView)
	case strings.HasPrefix(img.URI, "data:"):
		data, _, err := decodeDataURI(img.URI)
		return data, err
	case img.URI != "":
		if e.fsys == nil {
			return nil, fmt.Errorf("external image %q cannot be resolved", img.URI)
		}
		name, err := url.PathUnescape(img.URI)
		if err != nil {
			return nil, err
		}
		f, err := e.fsys.Open(path.Clean(name))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	default:
		return nil, fmt.Errorf("image has no data")
	}
}

func (e *gltfMaterialExtractor) readBufferView(idx int) ([]byte, error) {
	if idx < 0 || idx >= len(e.doc.BufferViews) {
		return nil, fmt.Errorf("bufferView index %d out of range", idx)
	}
	bv := e.doc.BufferViews[idx]
	if bv.Buffer < 0 || bv.Buffer >= len(e.doc.Buffers) {
		return nil, fmt.Errorf("buffer index %d out of range", bv.Buffer)
	}
	buf := e.doc.Buffers[bv.Buffer]
	end := bv.ByteOffset + bv.ByteLength
	if end > len(buf.Data) {
		return nil, fmt.Errorf("bufferView exceeds buffer bounds: offset=%d length=%d bufSize=%d", bv.ByteOffset, bv.ByteLength, len(buf.Data))
	}
	return buf.Data[bv.ByteOffset:end], nil
}

// toRGBA downscales img to fit maxTextureSize and converts it to tightly
// packed RGBA8.
func (e *gltfMaterialExtractor) toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if limit := e.maxTextureSize; limit > 0 && (b.Dx() > limit || b.Dy() > limit) {
		img = resize.Thumbnail(uint(limit), uint(limit), img, resize.Lanczos3)
		b = img.Bounds()
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == 4*b.Dx() && b.Min == (image.Point{}) {
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// decodeDataURI decodes a base64 data URI into raw bytes and its MIME type.
func decodeDataURI(uri string) ([]byte, string, error) {
	// data:[<mediatype>][;base64],<data>
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", fmt.Errorf("not a data URI")
	}
	header, encoded, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URI: no comma found")
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		data, err := url.PathUnescape(encoded)
		if err != nil {
			return nil, "", err
		}
		return []byte(data), mimeType, nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, mimeType, nil
}
