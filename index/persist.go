package index

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/stylekit/stylekit/core"
)

// 持久化格式（little endian）：
//
//	magic "SKVI" | format uint16 | dim uint32 | modelVersion string |
//	count uint32 | count × { id string | category string | ver uint64 | dim × float32 }
//
// string = uint16 长度 + 字节。只写存活行（持久化即隐式 compact）。
// Load 校验 magic / format / dim / modelVersion，不兼容时快速失败，
// 绝不静默截断或补零向量。
var persistMagic = [4]byte{'S', 'K', 'V', 'I'}

const persistFormat uint16 = 1

// Persist 把索引原子写入 path（先写临时文件再 rename）。
// 落盘前在读锁内深拷贝存活行，拷贝之后的增量 Add/Remove 不影响本次落盘。
func (idx *VisualIndex) Persist(path string) error {
	idx.mu.RLock()
	a := idx.a.compact()
	idx.mu.RUnlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".skvi-*")
	if err != nil {
		return fmt.Errorf("index persist: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := writeArena(w, a, idx.model); err != nil {
		tmp.Close()
		return fmt.Errorf("index persist: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("index persist: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("index persist: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("index persist: %w", err)
	}
	return nil
}

// Load 从 path 载入索引，替换当前内容。
// 维度或模型版本与配置不符返回 DIMENSION_MISMATCH（启动期致命）。
func (idx *VisualIndex) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("index load: %w", err)
	}
	defer f.Close()

	a, maxVer, err := readArena(bufio.NewReader(f), idx.dim, idx.model)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.a = a
	idx.ver = maxVer
	if a.live() > 0 {
		idx.state = StateReady
	} else {
		idx.state = StateEmpty
	}
	return nil
}

func writeArena(w io.Writer, a *arena, model string) error {
	if _, err := w.Write(persistMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, persistFormat); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(a.dim)); err != nil {
		return err
	}
	if err := writeString(w, model); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(a.live())); err != nil {
		return err
	}
	for row, id := range a.ids {
		if a.dead[row] {
			continue
		}
		if err := writeString(w, id); err != nil {
			return err
		}
		if err := writeString(w, string(a.cats[row])); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, a.vers[row]); err != nil {
			return err
		}
		for _, v := range a.vector(row) {
			if err := binary.Write(w, binary.LittleEndian, math.Float32bits(v)); err != nil {
				return err
			}
		}
	}
	return nil
}

func readArena(r io.Reader, wantDim int, wantModel string) (*arena, uint64, error) {
	invalid := func(msg string) error {
		return core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput, "index load: "+msg)
	}

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, 0, invalid("short header")
	}
	if magic != persistMagic {
		return nil, 0, invalid("bad magic, not a visual index file")
	}
	var format uint16
	if err := binary.Read(r, binary.LittleEndian, &format); err != nil {
		return nil, 0, invalid("short header")
	}
	if format != persistFormat {
		return nil, 0, invalid(fmt.Sprintf("unsupported format %d", format))
	}
	var dim uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, 0, invalid("short header")
	}
	if int(dim) != wantDim {
		return nil, 0, core.NewDomainError(core.ModuleIndex, core.ErrorCodeDimensionMismatch,
			fmt.Sprintf("index load: file dim %d, extractor dim %d", dim, wantDim))
	}
	model, err := readString(r)
	if err != nil {
		return nil, 0, invalid("short header")
	}
	if model != wantModel {
		return nil, 0, core.NewDomainError(core.ModuleIndex, core.ErrorCodeDimensionMismatch,
			fmt.Sprintf("index load: file model %q, extractor model %q", model, wantModel))
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, 0, invalid("short header")
	}

	a := newArena(wantDim)
	var maxVer uint64
	vec := make([]float32, wantDim)
	for i := uint32(0); i < count; i++ {
		id, err := readString(r)
		if err != nil {
			return nil, 0, invalid("truncated entry")
		}
		cat, err := readString(r)
		if err != nil {
			return nil, 0, invalid("truncated entry")
		}
		var ver uint64
		if err := binary.Read(r, binary.LittleEndian, &ver); err != nil {
			return nil, 0, invalid("truncated entry")
		}
		for j := range vec {
			var bits uint32
			if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
				return nil, 0, invalid("truncated vector")
			}
			vec[j] = math.Float32frombits(bits)
		}
		a.add(id, vec, core.Category(cat), ver)
		if ver > maxVer {
			maxVer = ver
		}
	}
	return a, maxVer, nil
}

func writeString(w io.Writer, s string) error {
	if len(s) > 0xffff {
		return fmt.Errorf("string too long: %d", len(s))
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
