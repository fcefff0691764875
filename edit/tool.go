/*
	Package edit provides high-level voxel editing over a buffer or a block map.  Each Tool
	operation is one edit: pick the shape that fits the job, since DoBox or DoSphere walk
	the affected area directly and are much faster than repeated DoPoint calls.
*/
package edit

import (
	"errors"
	"fmt"
	"math"

	"github.com/janelia-flyem/voxterrain/dvid"
	"github.com/janelia-flyem/voxterrain/voxels"
)

// ErrNotEditable is wrapped when an edit targets an area the backend cannot modify.
var ErrNotEditable = errors.New("area not editable")

// Mode selects how shape operations combine with existing voxels.
type Mode uint8

const (
	ModeAdd Mode = iota
	ModeRemove
	ModeSet
	ModeTexturePaint
)

func (m Mode) String() string {
	switch m {
	case ModeAdd:
		return "add"
	case ModeRemove:
		return "remove"
	case ModeSet:
		return "set"
	case ModeTexturePaint:
		return "texture_paint"
	}
	return fmt.Sprintf("mode(%d)", m)
}

// ModeFromString parses a mode name.
func ModeFromString(s string) (Mode, error) {
	for m := ModeAdd; m <= ModeTexturePaint; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown edit mode %q", voxels.ErrInvalidArgument, s)
}

// TextureParams control texture painting.
type TextureParams struct {
	Opacity   float32
	Sharpness float32
	Index     uint8
}

// Backend is the low-level storage a Tool edits.  Cell accessors are unchecked by
// contract: the Tool verifies IsAreaEditable first, and backends skip cells they cannot
// write.  None of these calls represent an edit on their own.
type Backend interface {
	GetVoxel(pos dvid.Point3d, c voxels.ChannelID) uint64
	GetVoxelF(pos dvid.Point3d, c voxels.ChannelID) float64
	SetVoxel(v uint64, pos dvid.Point3d, c voxels.ChannelID)
	SetVoxelF(v float64, pos dvid.Point3d, c voxels.ChannelID)

	// WriteBox and WriteBoxF replace channel values within the editable part of a box.
	// Positions passed to fn are world positions.
	WriteBox(box dvid.Box3d, c voxels.ChannelID, fn func(pos dvid.Point3d, v uint64) uint64)
	WriteBoxF(box dvid.Box3d, c voxels.ChannelID, fn func(pos dvid.Point3d, v float64) float64)

	// WriteTextureBox runs fn over the packed texture indices and weights of a box.
	WriteTextureBox(box dvid.Box3d, fn func(pos dvid.Point3d, indices, weights *uint16)) error

	// IsAreaEditable checks if an edit affecting the box can be applied, fully or partially.
	IsAreaEditable(box dvid.Box3d) bool

	Copy(pos dvid.Point3d, dst *voxels.Buffer, channelsMask uint8) error
	Paste(pos dvid.Point3d, src *voxels.Buffer, channelsMask uint8, maskValue uint64) error

	VoxelMetadata(pos dvid.Point3d) interface{}
	SetVoxelMetadata(pos dvid.Point3d, v interface{})

	// PostEdit is called once after every edit with the affected box.
	PostEdit(box dvid.Box3d)
}

// Tool edits voxels of one channel through a Backend.  A Tool is not safe for
// concurrent use.
type Tool struct {
	backend Backend

	value       uint64
	eraserValue uint64
	channel     voxels.ChannelID
	sdfScale    float64
	mode        Mode
	texture     TextureParams
}

// NewTool returns a tool with default parameters: ADD mode on the TYPE channel, eraser
// value 0 (air), SDF scale 1, fully opaque texture painting.
func NewTool(backend Backend) *Tool {
	if backend == nil {
		panic("edit: tool created without backend")
	}
	return &Tool{
		backend:  backend,
		sdfScale: 1,
		texture:  TextureParams{Opacity: 1, Sharpness: 2},
	}
}

func (t *Tool) Value() uint64                { return t.value }
func (t *Tool) SetValue(v uint64)            { t.value = v }
func (t *Tool) EraserValue() uint64          { return t.eraserValue }
func (t *Tool) SetEraserValue(v uint64)      { t.eraserValue = v }
func (t *Tool) Channel() voxels.ChannelID    { return t.channel }
func (t *Tool) Mode() Mode                   { return t.mode }
func (t *Tool) SetMode(m Mode)               { t.mode = m }
func (t *Tool) SDFScale() float64            { return t.sdfScale }
func (t *Tool) SetSDFScale(s float64)        { t.sdfScale = s }
func (t *Tool) TextureParams() TextureParams { return t.texture }

// SetChannel selects the edited channel.
func (t *Tool) SetChannel(c voxels.ChannelID) error {
	if int(c) >= voxels.MaxChannels {
		return fmt.Errorf("%w: channel %d", voxels.ErrInvalidArgument, c)
	}
	t.channel = c
	return nil
}

// SetTextureIndex selects the painted texture, 0 to 15.
func (t *Tool) SetTextureIndex(i uint8) error {
	if i > 15 {
		return fmt.Errorf("%w: texture index %d exceeds 15", voxels.ErrInvalidArgument, i)
	}
	t.texture.Index = i
	return nil
}

// SetTextureOpacity sets the maximum weight of painted textures, clamped to 0..1.
func (t *Tool) SetTextureOpacity(opacity float32) {
	t.texture.Opacity = clamp32(opacity, 0, 1)
}

// SetTextureFalloff sets how sharply painted weights fade toward the brush edge.
func (t *Tool) SetTextureFalloff(sharpness float32) {
	if sharpness < 0.001 {
		sharpness = 0.001
	}
	t.texture.Sharpness = sharpness
}

func clamp32(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func (t *Tool) isSDF() bool {
	return t.channel == voxels.ChannelSDF
}

// sdfBlend combines an existing signed distance with the distance d to the edited shape.
func (t *Tool) sdfBlend(old, d float64) float64 {
	d *= t.sdfScale
	switch t.mode {
	case ModeAdd:
		return math.Min(old, d)
	case ModeRemove:
		return math.Max(old, -d)
	default:
		return d
	}
}

func (t *Tool) paintValue() uint64 {
	if t.mode == ModeRemove {
		return t.eraserValue
	}
	return t.value
}

func (t *Tool) checkEditable(box dvid.Box3d) error {
	if !t.backend.IsAreaEditable(box) {
		return fmt.Errorf("%w: %s", ErrNotEditable, box)
	}
	return nil
}

// IsAreaEditable checks if an edit affecting the box can be applied, fully or partially.
func (t *Tool) IsAreaEditable(box dvid.Box3d) bool {
	return t.backend.IsAreaEditable(box)
}

// GetVoxel returns the value of the tool's channel at a position.
func (t *Tool) GetVoxel(pos dvid.Point3d) uint64 {
	return t.backend.GetVoxel(pos, t.channel)
}

// GetVoxelF returns the float view of the tool's channel at a position.
func (t *Tool) GetVoxelF(pos dvid.Point3d) float64 {
	return t.backend.GetVoxelF(pos, t.channel)
}

// SetVoxel writes a raw value regardless of mode.
func (t *Tool) SetVoxel(pos dvid.Point3d, v uint64) error {
	box := dvid.Box3d{Pos: pos, Size: dvid.Point3d{1, 1, 1}}
	if err := t.checkEditable(box); err != nil {
		return err
	}
	t.backend.SetVoxel(v, pos, t.channel)
	t.backend.PostEdit(box)
	return nil
}

// SetVoxelF writes a float value regardless of mode.
func (t *Tool) SetVoxelF(pos dvid.Point3d, v float64) error {
	box := dvid.Box3d{Pos: pos, Size: dvid.Point3d{1, 1, 1}}
	if err := t.checkEditable(box); err != nil {
		return err
	}
	t.backend.SetVoxelF(v, pos, t.channel)
	t.backend.PostEdit(box)
	return nil
}

// editCell applies the current mode to one cell fully inside a point-like shape.
func (t *Tool) editCell(pos dvid.Point3d) error {
	switch {
	case t.mode == ModeTexturePaint:
		return t.backend.WriteTextureBox(dvid.Box3d{Pos: pos, Size: dvid.Point3d{1, 1, 1}}, t.textureFill())
	case t.isSDF():
		t.backend.SetVoxelF(t.sdfBlend(t.backend.GetVoxelF(pos, t.channel), -1), pos, t.channel)
	default:
		t.backend.SetVoxel(t.paintValue(), pos, t.channel)
	}
	return nil
}

func (t *Tool) textureFill() func(pos dvid.Point3d, indices, weights *uint16) {
	tp := t.texture
	return func(pos dvid.Point3d, indices, weights *uint16) {
		voxels.BlendTexturePackedU16(tp.Index, tp.Opacity, indices, weights)
	}
}

// textureSphere blends weights that fade from the center to the radius.
func textureSphere(center dvid.Vector3d, radius float64, tp TextureParams) func(pos dvid.Point3d, indices, weights *uint16) {
	r2 := radius * radius
	return func(pos dvid.Point3d, indices, weights *uint16) {
		v := pos.Vector3d().Subtract(center)
		d2 := v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
		if d2 >= r2 {
			return
		}
		fromRadius := radius - math.Sqrt(d2)
		target := tp.Opacity * clamp32(tp.Sharpness*float32(fromRadius/radius), 0, 1)
		voxels.BlendTexturePackedU16(tp.Index, target, indices, weights)
	}
}

// DoPoint edits a single voxel.
func (t *Tool) DoPoint(pos dvid.Point3d) error {
	box := dvid.Box3d{Pos: pos, Size: dvid.Point3d{1, 1, 1}}
	if err := t.checkEditable(box); err != nil {
		return err
	}
	err := t.editCell(pos)
	t.backend.PostEdit(box)
	return err
}

// DoLine edits every voxel of a 3D Bresenham line, both ends included.
func (t *Tool) DoLine(begin, end dvid.Point3d) error {
	box := dvid.BoxFromMinMax(begin.Min(end), begin.Max(end).AddScalar(1))
	if err := t.checkEditable(box); err != nil {
		return err
	}
	var err error
	ForEachLinePoint(begin, end, func(p dvid.Point3d) {
		if e := t.editCell(p); e != nil && err == nil {
			err = e
		}
	})
	t.backend.PostEdit(box)
	return err
}

// ForEachLinePoint walks the cells of a 3D Bresenham line from begin to end inclusive.
func ForEachLinePoint(begin, end dvid.Point3d, fn func(p dvid.Point3d)) {
	var step, abs dvid.Point3d
	d := end.Sub(begin)
	for i := 0; i < 3; i++ {
		if d[i] < 0 {
			step[i], abs[i] = -1, -d[i]
		} else {
			step[i], abs[i] = 1, d[i]
		}
	}
	m := 0
	for i := 1; i < 3; i++ {
		if abs[i] > abs[m] {
			m = i
		}
	}
	u, v := (m+1)%3, (m+2)%3
	eu := 2*abs[u] - abs[m]
	ev := 2*abs[v] - abs[m]
	p := begin
	for n := int32(0); n <= abs[m]; n++ {
		fn(p)
		if eu > 0 {
			p[u] += step[u]
			eu -= 2 * abs[m]
		}
		if ev > 0 {
			p[v] += step[v]
			ev -= 2 * abs[m]
		}
		eu += 2 * abs[u]
		ev += 2 * abs[v]
		p[m] += step[m]
	}
}

// DoCircle edits a disc of voxels centered on pos, perpendicular to the dominant axis of
// direction.
func (t *Tool) DoCircle(pos dvid.Point3d, radius int32, direction dvid.Point3d) error {
	if radius < 0 {
		return fmt.Errorf("%w: negative radius %d", voxels.ErrInvalidArgument, radius)
	}
	axis := -1
	var best int32
	for i := 0; i < 3; i++ {
		a := direction[i]
		if a < 0 {
			a = -a
		}
		if a > best {
			best, axis = a, i
		}
	}
	if axis < 0 {
		return fmt.Errorf("%w: circle direction is zero", voxels.ErrInvalidArgument)
	}
	u, v := (axis+1)%3, (axis+2)%3
	var ext dvid.Point3d
	ext[u], ext[v] = radius, radius
	box := dvid.BoxFromMinMax(pos.Sub(ext), pos.Add(ext).AddScalar(1))
	if err := t.checkEditable(box); err != nil {
		return err
	}
	var err error
	r2 := radius * radius
	for du := -radius; du <= radius; du++ {
		for dv := -radius; dv <= radius; dv++ {
			if du*du+dv*dv > r2 {
				continue
			}
			p := pos
			p[u] += du
			p[v] += dv
			if e := t.editCell(p); e != nil && err == nil {
				err = e
			}
		}
	}
	t.backend.PostEdit(box)
	return err
}

// DoSphere edits voxels within radius of center.  On the SDF channel, the whole bounding
// box receives the sphere's distance so the surface stays smooth.
func (t *Tool) DoSphere(center dvid.Vector3d, radius float64) error {
	if radius <= 0 {
		return fmt.Errorf("%w: sphere radius %f", voxels.ErrInvalidArgument, radius)
	}
	ext := dvid.Vector3d{radius, radius, radius}
	box := dvid.BoxFromMinMax(center.Subtract(ext).Floor(), center.Add(ext).Floor().AddScalar(1))
	if err := t.checkEditable(box); err != nil {
		return err
	}
	if t.mode == ModeTexturePaint {
		err := t.backend.WriteTextureBox(box, textureSphere(center, radius, t.texture))
		t.backend.PostEdit(box)
		return err
	}
	if t.isSDF() {
		t.backend.WriteBoxF(box, t.channel, func(pos dvid.Point3d, v float64) float64 {
			return t.sdfBlend(v, pos.Vector3d().Distance(center)-radius)
		})
	} else {
		value := t.paintValue()
		t.backend.WriteBox(box, t.channel, func(pos dvid.Point3d, v uint64) uint64 {
			if pos.Vector3d().Distance(center) <= radius {
				return value
			}
			return v
		})
	}
	t.backend.PostEdit(box)
	return nil
}

// DoBox edits every voxel between two corners, both included.
func (t *Tool) DoBox(begin, end dvid.Point3d) error {
	box := dvid.BoxFromMinMax(begin.Min(end), begin.Max(end).AddScalar(1))
	if err := t.checkEditable(box); err != nil {
		return err
	}
	var err error
	switch {
	case t.mode == ModeTexturePaint:
		err = t.backend.WriteTextureBox(box, t.textureFill())
	case t.isSDF():
		t.backend.WriteBoxF(box, t.channel, func(pos dvid.Point3d, v float64) float64 {
			return t.sdfBlend(v, -1)
		})
	default:
		value := t.paintValue()
		t.backend.WriteBox(box, t.channel, func(pos dvid.Point3d, v uint64) uint64 {
			return value
		})
	}
	t.backend.PostEdit(box)
	return err
}

// Copy reads the area starting at pos into dst.
func (t *Tool) Copy(pos dvid.Point3d, dst *voxels.Buffer, channelsMask uint8) error {
	if dst == nil {
		return fmt.Errorf("%w: nil destination buffer", voxels.ErrInvalidArgument)
	}
	if channelsMask == 0 {
		channelsMask = t.channel.Mask()
	}
	return t.backend.Copy(pos, dst, channelsMask)
}

// Paste writes src with its origin at pos, skipping source cells equal to maskValue.
// A zero channelsMask selects the tool's channel.
func (t *Tool) Paste(pos dvid.Point3d, src *voxels.Buffer, channelsMask uint8, maskValue uint64) error {
	if src == nil {
		return fmt.Errorf("%w: nil source buffer", voxels.ErrInvalidArgument)
	}
	if channelsMask == 0 {
		channelsMask = t.channel.Mask()
	}
	box := dvid.Box3d{Pos: pos, Size: src.Size()}
	if err := t.checkEditable(box); err != nil {
		return err
	}
	err := t.backend.Paste(pos, src, channelsMask, maskValue)
	t.backend.PostEdit(box)
	return err
}

// VoxelMetadata returns the metadata of the cell containing a world position.
func (t *Tool) VoxelMetadata(pos dvid.Vector3d) interface{} {
	return t.backend.VoxelMetadata(pos.Floor())
}

// SetVoxelMetadata attaches metadata to the cell containing a world position.  A nil
// value erases it.
func (t *Tool) SetVoxelMetadata(pos dvid.Vector3d, v interface{}) error {
	p := pos.Floor()
	if err := t.checkEditable(dvid.Box3d{Pos: p, Size: dvid.Point3d{1, 1, 1}}); err != nil {
		return err
	}
	t.backend.SetVoxelMetadata(p, v)
	return nil
}
