package bootstrap

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"ab-retention/pkg/models"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"
)

// chunkSize fixe le découpage des lignes. Chaque chunk a sa propre source
// aléatoire dérivée de (seed, index du chunk), donc les poids tirés ne
// dépendent pas du nombre de workers.
const chunkSize = 4096

// Options paramètre Resample.
type Options struct {
	// Seed rend les tirages reproductibles. nil → graine aléatoire.
	Seed *uint64
	// Workers borne le nombre de goroutines d'accumulation (défaut 1).
	// Les comptes sont exacts quel que soit Workers ; les sommes de revenu
	// peuvent différer au dernier bit entre deux valeurs de Workers, car
	// l'ordre d'addition flottante change. Même seed + même Workers → résultat identique.
	Workers int
	// StrictGroups refuse tout libellé autre que "a"/"b".
	// Par défaut tout ce qui n'est pas "a" va dans le groupe B.
	StrictGroups bool
	// OnChunk est appelé après chaque chunk traité (progression). Doit être thread-safe.
	OnChunk func()
}

// totals : sommes courantes par échantillon pour un groupe.
type totals struct {
	revenue  []float64
	entities []float64
	positive []float64
}

func newTotals(b int) totals {
	return totals{
		revenue:  make([]float64, b),
		entities: make([]float64, b),
		positive: make([]float64, b),
	}
}

// contribute ajoute la contribution d'une ligne pondérée par w.
func (t totals) contribute(value float64, w []float64) {
	paying := value > 0
	for s, ws := range w {
		t.revenue[s] += ws * value
		t.entities[s] += ws
		if paying {
			t.positive[s] += ws
		}
	}
}

func (t totals) merge(o totals) {
	for s := range t.revenue {
		t.revenue[s] += o.revenue[s]
		t.entities[s] += o.entities[s]
		t.positive[s] += o.positive[s]
	}
}

type partial struct {
	a, b totals
}

// Resample génère B rééchantillons bootstrap de Poisson des lignes et renvoie
// une table de B lignes (agrégats par groupe + différences B - A).
func Resample(rows []models.EntityRow, b int, opts Options) (*models.SampleTable, error) {
	if b < 1 {
		return nil, fmt.Errorf("%w: samples=%d, must be >= 1", models.ErrInvalidParameter, b)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no entity rows", models.ErrInsufficientData)
	}

	inB, err := splitGroups(rows, opts.StrictGroups)
	if err != nil {
		return nil, err
	}

	var seed uint64
	if opts.Seed != nil {
		seed = *opts.Seed
	} else {
		seed = rand.Uint64()
	}

	chunks := (len(rows) + chunkSize - 1) / chunkSize
	workers := max(opts.Workers, 1)
	workers = min(workers, chunks)

	partials := make([]partial, workers)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			p := partial{a: newTotals(b), b: newTotals(b)}
			weights := make([]float64, b)
			for c := w; c < chunks; c += workers {
				pois := distuv.Poisson{Lambda: 1, Src: rand.NewPCG(seed, uint64(c))}
				lo, hi := c*chunkSize, min((c+1)*chunkSize, len(rows))
				for i := lo; i < hi; i++ {
					for s := range weights {
						weights[s] = pois.Rand()
					}
					if inB[i] {
						p.b.contribute(rows[i].Value, weights)
					} else {
						p.a.contribute(rows[i].Value, weights)
					}
				}
				if opts.OnChunk != nil {
					opts.OnChunk()
				}
			}
			partials[w] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Réduction dans l'ordre des workers.
	acc := partials[0]
	for _, p := range partials[1:] {
		acc.a.merge(p.a)
		acc.b.merge(p.b)
	}
	return buildTable(acc, b), nil
}

// Chunks renvoie le nombre de chunks traités pour n lignes (taille de la barre de progression).
func Chunks(n int) int {
	return (n + chunkSize - 1) / chunkSize
}

// splitGroups renvoie, pour chaque ligne, true si elle appartient au groupe B.
func splitGroups(rows []models.EntityRow, strict bool) ([]bool, error) {
	inB := make([]bool, len(rows))
	var countA, countB int
	for i, r := range rows {
		g := strings.ToLower(strings.TrimSpace(r.Group))
		switch {
		case g == "a":
			countA++
		case g == "b" || !strict:
			inB[i] = true
			countB++
		default:
			return nil, fmt.Errorf("%w: row %d has group %q, want a or b", models.ErrInvalidParameter, i, r.Group)
		}
	}
	if countA == 0 || countB == 0 {
		return nil, fmt.Errorf("%w: both groups required (a=%d, b=%d)", models.ErrInsufficientData, countA, countB)
	}
	return inB, nil
}

// buildTable calcule les métriques par échantillon. Une division par zéro
// produit une valeur non finie, laissée telle quelle dans la table.
func buildTable(p partial, b int) *models.SampleTable {
	t := &models.SampleTable{Rows: make([]models.SampleRow, b)}
	for s := 0; s < b; s++ {
		r := models.SampleRow{
			RevenueA:       p.a.revenue[s],
			CountEntitiesA: p.a.entities[s],
			CountPositiveA: p.a.positive[s],
			RevenueB:       p.b.revenue[s],
			CountEntitiesB: p.b.entities[s],
			CountPositiveB: p.b.positive[s],
		}
		r.ARPUDifference = r.RevenueB/r.CountEntitiesB - r.RevenueA/r.CountEntitiesA
		r.ARPPUDifference = r.RevenueB/r.CountPositiveB - r.RevenueA/r.CountPositiveA
		r.CRDifference = r.CountPositiveB/r.CountEntitiesB - r.CountPositiveA/r.CountEntitiesA
		t.Rows[s] = r
	}
	return t
}
