// Command hpsexport decodes an HPS file and reports its mesh shape
// and size statistics. Writing a 3D interchange file (STL/OBJ/PLY) is
// left to an external collaborator (spec.md §1 Non-goals); this CLI
// stops at decode-and-report.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/dentalscan/hpsdecode"
	"github.com/dentalscan/hpsdecode/cipher"
	"github.com/dentalscan/hpsdecode/convert"
	"github.com/dentalscan/hpsdecode/errs"
	"github.com/dentalscan/hpsdecode/meshmodel"
	"github.com/dentalscan/hpsdecode/trace"
)

func loadEncryptionKey(keyArg string) []byte {
	if keyArg != "" {
		return cipher.ParseUserKey(keyArg)
	}

	if envKey, ok := os.LookupEnv("HPS_ENCRYPTION_KEY"); ok {
		return cipher.ParseUserKey(envKey)
	}

	return nil
}

func formatBytes(size int64) string {
	value := float64(size)

	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if value < 1024 {
			return fmt.Sprintf("%.2f %s", value, unit)
		}

		value /= 1024
	}

	return fmt.Sprintf("%.2f TB", value)
}

func run(args []string) int {
	fs := flag.NewFlagSet("hpsexport", flag.ContinueOnError)

	keyArg := fs.String("key", "", "encryption key for encrypted HPS files: raw string, hex (0x1c8d10...), or comma-separated byte values (28,141,16,...); falls back to HPS_ENCRYPTION_KEY")
	traceFlag := fs.Bool("trace", false, "print the decode's opcode trace fingerprint")
	fillColorsFlag := fs.Bool("fill-vertex-colors", false, "derive vertex colors from face colors or the first texture when the file carries none")
	inspectFlag := fs.Bool("inspect", false, "print envelope metadata without walking the opcode stream (cheaper than a full decode)")

	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: hpsexport [-key KEY] [-trace] [-fill-vertex-colors] [-inspect] <input.hps>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	inputPath := fs.Arg(0)

	f, err := os.Open(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error: input file not found: %s\n", inputPath)
			return 1
		}

		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}
	defer f.Close()

	key := loadEncryptionKey(*keyArg)
	provider := cipher.NewStaticKeyProvider(key)

	if *inspectFlag {
		return inspect(f, provider, inputPath)
	}

	result, err := hpsdecode.DecodeTrace(f, provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeDecodeError(err))
		return 1
	}

	mesh := result.Mesh

	stat, statErr := f.Stat()
	if statErr == nil {
		fmt.Printf("Decoded '%s' (%s)\n", inputPath, formatBytes(stat.Size()))
	}

	fmt.Printf("  vertices: %d\n", mesh.NumVertices())
	fmt.Printf("  faces:    %d\n", mesh.NumFaces())
	fmt.Printf("  vertex colors: %t\n", mesh.HasVertexColors())
	fmt.Printf("  face colors:   %t\n", mesh.HasFaceColors())
	fmt.Printf("  texture coords: %t\n", mesh.HasTextureCoords())
	fmt.Printf("  textures: %d\n", len(mesh.TextureImages))

	if *traceFlag {
		fmt.Printf("  trace fingerprint: %016x\n", trace.Fingerprint(result.Trace))
	}

	if *fillColorsFlag && !mesh.HasVertexColors() {
		derived, derivedErr := deriveVertexColors(mesh)
		if derivedErr != nil {
			fmt.Fprintf(os.Stderr, "Error: could not derive vertex colors: %s\n", derivedErr)
			return 1
		}

		fmt.Printf("  derived vertex colors: %d\n", len(derived))
	}

	return 0
}

// inspect prints a scan's envelope metadata and decrypts its streams
// (if CE) without walking the CC opcode stream — the cheap path for a
// caller that only wants to know a file's shape and encryption state.
func inspect(f *os.File, provider cipher.KeyProvider, inputPath string) int {
	scan, err := hpsdecode.PackScan(f, provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeDecodeError(err))
		return 1
	}

	fmt.Printf("Inspected '%s'\n", inputPath)
	fmt.Printf("  schema:   %s\n", scan.Schema)
	fmt.Printf("  encrypted: %t\n", scan.IsEncrypted())
	fmt.Printf("  vertices: %d\n", scan.NumVertices)
	fmt.Printf("  faces:    %d\n", scan.NumFaces)
	fmt.Printf("  vertex colors: %t\n", scan.VertexColorsData != nil || scan.DefaultVertexColor != nil)
	fmt.Printf("  texture coords: %t\n", scan.TextureCoordsData != nil)
	fmt.Printf("  textures: %d\n", len(scan.TextureImages))
	fmt.Printf("  splines:  %d\n", len(scan.Splines))
	fmt.Printf("  properties: %d\n", len(scan.Properties))

	return 0
}

// deriveVertexColors fills in a vertex-color channel for a mesh that
// decoded without one, preferring face colors (cheaper, no image
// decode) and falling back to the first texture image.
func deriveVertexColors(mesh meshmodel.Mesh) ([][3]uint8, error) {
	if mesh.HasFaceColors() {
		return convert.FaceColorsToVertexColors(mesh), nil
	}

	if mesh.HasTextures() {
		return convert.TextureToVertexColors(mesh)
	}

	return nil, errors.New("mesh has neither face colors nor textures to derive from")
}

func describeDecodeError(err error) string {
	switch {
	case errors.Is(err, errs.ErrUnsupportedSchema):
		return "unsupported HPS schema: " + err.Error()
	case errors.Is(err, errs.ErrMalformedEnvelope):
		return "failed to parse HPS file: " + err.Error()
	case errors.Is(err, errs.ErrIntegrityCheckFailed):
		return "decryption failed (wrong key?): " + err.Error()
	default:
		return err.Error()
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}
