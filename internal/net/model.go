package net

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrShapeMismatch is returned when a stored model does not hold exactly the
// parameters of the network it is loaded into.
var ErrShapeMismatch = errors.New("net: model shape mismatch")

// Save writes every weight and bias buffer, in Params order, as raw
// little-endian float32 values with no header.
func (n *Network) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, p := range n.Params() {
		if err := binary.Write(bw, binary.LittleEndian, p.Weight); err != nil {
			return errors.Wrapf(err, "write %s weight", p.Name)
		}
		if err := binary.Write(bw, binary.LittleEndian, p.Bias); err != nil {
			return errors.Wrapf(err, "write %s bias", p.Name)
		}
	}
	return errors.Wrap(bw.Flush(), "flush model")
}

// Load reads a model written by Save. The stream must hold exactly the
// network's parameters; a short or long stream yields ErrShapeMismatch and
// leaves the network unchanged.
func (n *Network) Load(r io.Reader) error {
	br := bufio.NewReader(r)
	params := n.Params()

	var dst, src [][]float32
	for _, p := range params {
		for _, buf := range [][]float32{p.Weight, p.Bias} {
			tmp := make([]float32, len(buf))
			if err := binary.Read(br, binary.LittleEndian, tmp); err != nil {
				if err == io.EOF || err == io.ErrUnexpectedEOF {
					return errors.Wrapf(ErrShapeMismatch, "%s: want %d values", p.Name, len(buf))
				}
				return errors.Wrapf(err, "read %s", p.Name)
			}
			dst = append(dst, buf)
			src = append(src, tmp)
		}
	}

	switch _, err := br.ReadByte(); err {
	case io.EOF:
	case nil:
		return errors.Wrap(ErrShapeMismatch, "trailing data after full layer")
	default:
		return errors.Wrap(err, "read model")
	}

	for i := range dst {
		copy(dst[i], src[i])
	}
	return nil
}

// SaveFile writes the model to path, replacing any existing file. The model
// is written to a temporary file in the same directory and renamed into
// place, so path holds either the old model or the complete new one.
func (n *Network) SaveFile(path string) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return errors.Wrap(err, "create model file")
	}
	tmp := f.Name()
	if err := n.Save(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.WithMessage(err, path)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "close model file")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "replace model file")
	}
	return nil
}

// LoadFile reads a model written by SaveFile.
func (n *Network) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open model file")
	}
	defer f.Close()

	return errors.WithMessage(n.Load(f), path)
}
