package separator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/executor"
)

const (
	DeviceAuto = "auto"
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

var demucsStemMap = map[string][]string{
	"htdemucs":    {"drums", "bass", "other", "vocals"},
	"htdemucs_ft": {"drums", "bass", "other", "vocals"},
	"htdemucs_6s": {"drums", "bass", "other", "vocals", "guitar", "piano"},
	"hdemucs_mmi": {"drums", "bass", "other", "vocals"},
	"mdx":         {"drums", "bass", "other", "vocals"},
	"mdx_extra":   {"drums", "bass", "other", "vocals"},
	"mdx_q":       {"drums", "bass", "other", "vocals"},
	"mdx_extra_q": {"drums", "bass", "other", "vocals"},
}

type DemucsLoaderConfig struct {
	DemucsBinPath    string
	NvidiaSMIBinPath string
	ModelName        string
	Device           string
}

var _ Loader = DemucsLoader{}

type DemucsLoader struct {
	config   DemucsLoaderConfig
	executor executor.Executor
	lookPath func(string) (string, error)
}

func NewDemucsLoader(config DemucsLoaderConfig, executor executor.Executor) DemucsLoader {
	return DemucsLoader{
		config:   config,
		executor: executor,
		lookPath: exec.LookPath,
	}
}

// WithLookPath swaps the binary resolution, used where no real demucs is installed.
func (d DemucsLoader) WithLookPath(lookPath func(string) (string, error)) DemucsLoader {
	d.lookPath = lookPath
	return d
}

func (d DemucsLoader) Load(ctx context.Context) (Model, error) {
	errctx := cerr.Fields(cerr.F{
		"model":           d.config.ModelName,
		"demucs_bin_path": d.config.DemucsBinPath,
	})

	stems, ok := demucsStemMap[d.config.ModelName]
	if !ok {
		return nil, errctx.Error("Unknown demucs model")
	}

	binPath, err := d.lookPath(d.config.DemucsBinPath)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to locate demucs binary")
	}

	device := d.resolveDevice(ctx)

	return DemucsModel{
		binPath:  binPath,
		name:     d.config.ModelName,
		stems:    stems,
		device:   device,
		executor: d.executor,
	}, nil
}

// resolveDevice prefers CUDA when a GPU answers, otherwise falls back to CPU.
func (d DemucsLoader) resolveDevice(ctx context.Context) string {
	switch d.config.Device {
	case DeviceCPU, DeviceCUDA:
		return d.config.Device
	}

	if d.config.NvidiaSMIBinPath == "" {
		return DeviceCPU
	}

	output, err := d.executor.Command(ctx, d.config.NvidiaSMIBinPath, "-L").CombinedOutput()
	if err != nil || !strings.Contains(string(output), "GPU") {
		log.WithField("nvidia_smi_output", strings.TrimSpace(string(output))).Info("No GPU detected, separating on cpu")
		return DeviceCPU
	}

	log.Info("GPU detected, separating on cuda")
	return DeviceCUDA
}

var _ Model = DemucsModel{}

type DemucsModel struct {
	binPath  string
	name     string
	stems    []string
	device   string
	executor executor.Executor
}

func (d DemucsModel) Name() string {
	return d.name
}

func (d DemucsModel) Stems() []string {
	return append([]string(nil), d.stems...)
}

func (d DemucsModel) Device() string {
	return d.device
}

func (d DemucsModel) Separate(ctx context.Context, inputPath string, outputDir string, options Options) (StemSet, error) {
	logger := log.WithFields(log.Fields{
		"input_path": inputPath,
		"output_dir": outputDir,
		"model":      d.name,
		"device":     d.device,
		"shifts":     options.Shifts,
	})

	// separation is a lengthy process, if we want to halt now is the time
	if ctx.Err() != nil {
		return nil, cerr.Wrap(ctx.Err()).Error("Context cancelled before separation could happen")
	}

	args := d.Args(inputPath, outputDir, options)
	errctx := cerr.Field("demucs_bin_path", d.binPath).Field("demucs_args", args)

	logger.Info("Running demucs command")

	cmd := d.executor.Command(ctx, d.binPath, args...)
	cmd.SetDir(outputDir)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, errctx.Field("demucs_output", string(output)).
			Wrap(err).
			Error(fmt.Sprintf("Error occurred while running demucs: %s", string(output)))
	}

	logger.Debug(string(output))
	logger.Info("Finished demucs command")

	return d.collectStems(filepath.Join(outputDir, d.name))
}

func (d DemucsModel) Args(inputPath string, outputDir string, options Options) []string {
	overlap := options.Overlap
	if overlap <= 0 {
		overlap = Overlap
	}

	args := []string{
		"-n", d.name,
		"--shifts", strconv.Itoa(options.Shifts),
		"--overlap", strconv.FormatFloat(overlap, 'f', -1, 64),
	}

	if options.SegmentSeconds > 0 {
		args = append(args, "--segment", strconv.Itoa(options.SegmentSeconds))
	}

	if d.device != "" {
		args = append(args, "-d", d.device)
	}

	return append(args, "--filename", "{stem}.{ext}", "-o", outputDir, inputPath)
}

func (d DemucsModel) collectStems(dir string) (StemSet, error) {
	logger := log.WithFields(log.Fields{
		"dir": dir,
	})

	logger.Info("Reading directory to collect stems")
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, cerr.Field("dir", dir).Wrap(err).Error("Error reading output directory")
	}

	found := map[string]string{}
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			continue
		}

		fileName := dirEntry.Name()
		stemName := strings.TrimSuffix(fileName, filepath.Ext(fileName))
		found[stemName] = filepath.Join(dir, fileName)
	}

	stems := StemSet{}
	for _, name := range d.stems {
		if path, ok := found[name]; ok {
			stems = append(stems, Stem{Name: name, Path: path})
		}
	}

	if len(stems) == 0 {
		return nil, cerr.Field("dir", dir).Error("No stems in output directory")
	}

	return stems, nil
}
