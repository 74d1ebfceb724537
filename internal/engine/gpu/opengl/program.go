package opengl

import (
	"fmt"
	"image"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/terrainbake/internal/engine/shader"
)

// stage is one shader stage of a program.
type stage struct {
	kind   uint32
	name   string
	source string
}

// linkProgram compiles every stage, links them and returns the program ID.
// Stage objects are deleted once linked; the program keeps the binaries.
func linkProgram(stages ...stage) (uint32, error) {
	prog := gl.CreateProgram()
	ids := make([]uint32, 0, len(stages))
	defer func() {
		for _, id := range ids {
			gl.DetachShader(prog, id)
			gl.DeleteShader(id)
		}
	}()

	for _, st := range stages {
		id, err := compileStage(st)
		if err != nil {
			gl.DeleteProgram(prog)
			return 0, err
		}
		ids = append(ids, id)
		gl.AttachShader(prog, id)
	}

	gl.LinkProgram(prog)
	if msg, ok := buildStatus(prog, gl.LINK_STATUS, gl.GetProgramiv, gl.GetProgramInfoLog); !ok {
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("link: %s", msg)
	}
	return prog, nil
}

func compileStage(st stage) (uint32, error) {
	id := gl.CreateShader(st.kind)
	src, free := gl.Strs(st.source + "\x00")
	gl.ShaderSource(id, 1, src, nil)
	free()
	gl.CompileShader(id)

	if msg, ok := buildStatus(id, gl.COMPILE_STATUS, gl.GetShaderiv, gl.GetShaderInfoLog); !ok {
		gl.DeleteShader(id)
		return 0, fmt.Errorf("%s shader: %s", st.name, msg)
	}
	return id, nil
}

// buildStatus reads a compile or link status and, on failure, the info log.
func buildStatus(
	id, pname uint32,
	getiv func(uint32, uint32, *int32),
	getLog func(uint32, int32, *int32, *uint8),
) (string, bool) {
	var status int32
	getiv(id, pname, &status)
	if status != gl.FALSE {
		return "", true
	}
	var n int32
	getiv(id, gl.INFO_LOG_LENGTH, &n)
	if n <= 0 {
		return "no info log", false
	}
	buf := make([]byte, n+1)
	getLog(id, n, nil, &buf[0])
	return strings.TrimRight(string(buf), "\x00\n "), false
}

// Texture units the base textures are bound to.
var textureUnits = map[string]int32{
	shader.UniformMainTex: 0,
	shader.UniformSnowTex: 1,
}

// hasTexture names the int flag telling the program a texture is bound.
var hasTexture = map[string]string{
	shader.UniformMainTex: "_HasMainTex",
	shader.UniformSnowTex: "_HasSnowTex",
}

// Program is the linked terrain program. Uniform writes go straight to the
// GL program object and are mirrored in a CPU-side shadow copy.
type Program struct {
	id        uint32
	locations map[string]int32
	shadow    *shader.Uniforms
	textures  map[string]uint32
}

func newProgram(vertexSrc, fragmentSrc string) (*Program, error) {
	id, err := linkProgram(
		stage{kind: gl.VERTEX_SHADER, name: "vertex", source: vertexSrc},
		stage{kind: gl.FRAGMENT_SHADER, name: "fragment", source: fragmentSrc},
	)
	if err != nil {
		return nil, err
	}
	p := &Program{
		id:        id,
		locations: make(map[string]int32),
		shadow:    shader.NewUniforms(),
		textures:  make(map[string]uint32),
	}
	for name, unit := range textureUnits {
		gl.ProgramUniform1i(p.id, p.uniform(name), unit)
	}
	return p, nil
}

// uniform returns the uniform location for the given name, caching lookups.
// Returns -1 if the uniform is not found or inactive; GL ignores writes to -1.
func (p *Program) uniform(name string) int32 {
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.locations[name] = loc
	return loc
}

// SetFloat implements shader.Program.
func (p *Program) SetFloat(name string, v float32) {
	p.shadow.SetFloat(name, v)
	gl.ProgramUniform1f(p.id, p.uniform(name), v)
}

// SetInt implements shader.Program.
func (p *Program) SetInt(name string, v int32) {
	p.shadow.SetInt(name, v)
	gl.ProgramUniform1i(p.id, p.uniform(name), v)
}

// SetTexture implements shader.Program. The image is uploaded with repeat
// wrapping; a nil image unbinds the slot.
func (p *Program) SetTexture(name string, img *image.NRGBA) {
	prev, seen := p.shadow.Textures[name]
	p.shadow.SetTexture(name, img)
	if seen && prev == img {
		return
	}

	if tex, ok := p.textures[name]; ok {
		gl.DeleteTextures(1, &tex)
		delete(p.textures, name)
	}
	flag := int32(0)
	if img != nil {
		p.textures[name] = uploadTexture(img)
		flag = 1
	}
	if f, ok := hasTexture[name]; ok {
		gl.ProgramUniform1i(p.id, p.uniform(f), flag)
	}
}

// Uniforms returns the shadow copy of everything bound so far.
func (p *Program) Uniforms() *shader.Uniforms {
	return p.shadow
}

// use makes the program current and binds its textures.
func (p *Program) use() {
	gl.UseProgram(p.id)
	for name, unit := range textureUnits {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
		gl.BindTexture(gl.TEXTURE_2D, p.textures[name])
	}
}

func (p *Program) setPass(pass shader.Pass, resolution int) {
	gl.ProgramUniform1i(p.id, p.uniform("_Pass"), int32(pass))
	gl.ProgramUniform2f(p.id, p.uniform("_Resolution"), float32(resolution), float32(resolution))
}

func (p *Program) delete() {
	for name, tex := range p.textures {
		gl.DeleteTextures(1, &tex)
		delete(p.textures, name)
	}
	if p.id != 0 {
		gl.DeleteProgram(p.id)
		p.id = 0
	}
}

func uploadTexture(img *image.NRGBA) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(img.Stride/4))
	b := img.Bounds()
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(b.Dx()), int32(b.Dy()), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix[img.PixOffset(b.Min.X, b.Min.Y):]))
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.GenerateMipmap(gl.TEXTURE_2D)
	return tex
}
