package infrastructure

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"gp-gam-emulation/internal/domain"
)

// Paths resolves the on-disk naming conventions shared by every tool.
type Paths struct {
	logger   *zap.Logger
	conf     domain.PathsConfig
	variable string
}

func NewPaths(logger *zap.Logger, conf domain.PathsConfig, variable string) *Paths {
	return &Paths{logger: logger, conf: conf, variable: variable}
}

func latFolder(lat float64) string {
	return fmt.Sprintf("lat%.3f", lat)
}

// TrainingFile is the per-grid-point training response file.
func (p *Paths) TrainingFile(key domain.TaskKey) string {
	return filepath.Join(p.conf.TrainingBase, p.variable, key.Month,
		fmt.Sprintf("lat_%.3f_lon_%.3f.dat", key.Lat, key.Lon))
}

func (p *Paths) TrainingDir(month string) string {
	return filepath.Join(p.conf.TrainingBase, p.variable, month)
}

func (p *Paths) gpRoot() string {
	return filepath.Join(p.conf.OutputRoot, "gp_emulation")
}

func (p *Paths) gamRoot() string {
	return filepath.Join(p.conf.OutputRoot, "gam_variance")
}

func (p *Paths) GPOutputDir(variant string, key domain.TaskKey) string {
	return filepath.Join(p.gpRoot(), variant, latFolder(key.Lat))
}

func (p *Paths) GAMOutputDir(variant string, key domain.TaskKey) string {
	return filepath.Join(p.gamRoot(), variant, latFolder(key.Lat))
}

// ComparisonFile is where the timing reporter writes its table for a stage.
func (p *Paths) ComparisonFile(stage string) string {
	root := p.gpRoot()
	if stage == "gam" {
		root = p.gamRoot()
	}
	return filepath.Join(root, "comparison", "timing_compare.csv")
}

// GPOutputName follows emulated_<kind>_values_<VAR>_<month>_ilat_<lat>_ilon_<lon>_<N>_w_o_carb.dat
// with kind one of mean, sd, lower95, upper95.
func (p *Paths) GPOutputName(kind string, key domain.TaskKey, n int) string {
	return fmt.Sprintf("emulated_%s_values_%s_%s_ilat_%.3f_ilon_%.4f_%d_w_o_carb.dat",
		kind, p.variable, key.Month, key.Lat, key.Lon, n)
}

func (p *Paths) GAMVarianceName(key domain.TaskKey, n int) string {
	return fmt.Sprintf("GAM_variances_%s_%s_%d_ilat_%.3f_ilon_%.4f.dat", p.variable, key.Month, n, key.Lat, key.Lon)
}

func (p *Paths) GAMGradientName(key domain.TaskKey, n int) string {
	return fmt.Sprintf("GAM_gradient_signs_%s_%s_%d_ilat_%.3f_ilon_%.4f.dat", p.variable, key.Month, n, key.Lat, key.Lon)
}

// FindGPMeanFile searches the baseline, optimised and plain lat folders for
// the GP mean of key, from strict to relaxed name patterns. Within the first
// root that has matches the newest file wins. The raw training file is the
// final fallback.
func (p *Paths) FindGPMeanFile(key domain.TaskKey) (string, error) {
	lat := latFolder(key.Lat)
	roots := []string{
		filepath.Join(p.gpRoot(), domain.VariantBaseline, lat),
		filepath.Join(p.gpRoot(), domain.VariantOptimised, lat),
		filepath.Join(p.gpRoot(), lat),
	}

	prefix := fmt.Sprintf("emulated_mean_values_%s_", p.variable)
	namePattern := func(lat, lon string) *regexp.Regexp {
		return regexp.MustCompile("^" + regexp.QuoteMeta(prefix+key.Month+"_ilat_"+lat+"_ilon_"+lon) + `_(\d+)_w_o_carb\.dat$`)
	}
	patterns := []*regexp.Regexp{
		namePattern(fmt.Sprintf("%.3f", key.Lat), fmt.Sprintf("%.4f", key.Lon)),
		namePattern(fmt.Sprintf("%.3f", key.Lat), fmt.Sprintf("%.3f", key.Lon)),
		namePattern(strconv.FormatFloat(key.Lat, 'f', -1, 64), strconv.FormatFloat(key.Lon, 'f', -1, 64)),
	}
	tokens := []string{prefix, key.Month, fmt.Sprintf("%.3f", key.Lat), fmt.Sprintf("%.3f", key.Lon)}

	for _, root := range roots {
		names, err := datFiles(root)
		if err != nil || len(names) == 0 {
			continue
		}

		var candidates []string
		for _, re := range patterns {
			for _, name := range names {
				if re.MatchString(name) {
					candidates = append(candidates, filepath.Join(root, name))
				}
			}
			if len(candidates) > 0 {
				break
			}
		}
		if len(candidates) == 0 {
			for _, name := range names {
				if containsAll(name, tokens) {
					candidates = append(candidates, filepath.Join(root, name))
				}
			}
		}
		if len(candidates) > 0 {
			path := newest(candidates)
			p.logger.Info("GP mean file found", zap.String("path", path), zap.Int("candidates", len(candidates)))
			return path, nil
		}
	}

	raw := p.TrainingFile(key)
	if _, err := os.Stat(raw); err == nil {
		p.logger.Warn("No GP output found, falling back to raw training file", zap.String("path", raw))
		return raw, nil
	}
	return "", fmt.Errorf("%w: no GP emulation file under %s for %s (tried %v)",
		domain.ErrFileNotFound, p.gpRoot(), key, roots)
}

// OutputCounts counts the .dat files written under the GP and GAM output
// roots. A root that does not exist yet counts as empty.
func (p *Paths) OutputCounts() (gp, gam int, err error) {
	if gp, err = countDat(p.gpRoot()); err != nil {
		return 0, 0, err
	}
	if gam, err = countDat(p.gamRoot()); err != nil {
		return 0, 0, err
	}
	return gp, gam, nil
}

func countDat(root string) (int, error) {
	n := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && strings.HasSuffix(d.Name(), ".dat") {
			n++
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	return n, err
}

func datFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".dat") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func containsAll(name string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(name, t) {
			return false
		}
	}
	return true
}

// newest returns the most recently modified path; ties keep name order.
func newest(paths []string) string {
	best := paths[0]
	var bestMod int64 = -1
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); mod > bestMod {
			best, bestMod = path, mod
		}
	}
	return best
}
