package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/model3d/model3d"
	"github.com/unixpickle/rakel/learners"
	"github.com/unixpickle/rakel/rakel"
	"gonum.org/v1/gonum/floats"
)

func main() {
	var numLabels int
	var numPoints int
	var numTestPoints int
	var noiseFeatures int
	var numModels int
	var subsetSize int
	var depth int
	var minLeafSize int
	var threshold float64
	var binaryRelevance bool
	var seed int64
	var cv bool
	var cvFolds int
	var cvMaxK int
	var cvMaxModels int
	var cvThresholdSteps int
	var verbose bool
	flag.IntVar(&numLabels, "labels", 6, "number of solids, each of which is one label")
	flag.IntVar(&numPoints, "points", 5000, "number of training points")
	flag.IntVar(&numTestPoints, "test-points", 2000, "number of held-out points")
	flag.IntVar(&noiseFeatures, "noise-features", 0, "number of uninformative features to append")
	flag.IntVar(&numModels, "models", 12, "number of labelset models")
	flag.IntVar(&subsetSize, "subset-size", 3, "number of labels per model")
	flag.IntVar(&depth, "depth", learners.DefaultMaxDepth, "maximum tree depth")
	flag.IntVar(&minLeafSize, "min-leaf-size", 5, "minimum samples per leaf")
	flag.Float64Var(&threshold, "threshold", rakel.DefaultThreshold, "label decision threshold")
	flag.BoolVar(&binaryRelevance, "binary-relevance", false,
		"train one tree per label instead of a powerset tree per model")
	flag.Int64Var(&seed, "seed", 0, "random seed (0 for time-based)")
	flag.BoolVar(&cv, "cv", false, "select subset size, models and threshold by cross-validation")
	flag.IntVar(&cvFolds, "cv-folds", 3, "number of cross-validation folds")
	flag.IntVar(&cvMaxK, "cv-max-k", 0, "largest subset size to search (0 for labels-1)")
	flag.IntVar(&cvMaxModels, "cv-max-models", 20, "largest number of models to search")
	flag.IntVar(&cvThresholdSteps, "cv-threshold-steps", 9, "number of thresholds to search")
	flag.BoolVar(&verbose, "verbose", false, "print out extra training information")
	flag.Parse()

	if len(flag.Args()) != 0 {
		fmt.Fprintln(os.Stderr, "Usage: rakel_solids [flags]")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
		os.Exit(1)
	}

	if seed == 0 {
		seed = rand.Int63()
	}
	log.Printf("Using seed %d", seed)
	rand.Seed(seed)

	solids := randomSolids(numLabels)
	train := solidsDataset(solids, numPoints, noiseFeatures)
	test := solidsDataset(solids, numTestPoints, noiseFeatures)
	logLabelDensity(train)

	var base rakel.Trainer = &learners.PowersetTree{MaxDepth: depth, MinCount: minLeafSize}
	if binaryRelevance {
		base = &learners.BinaryRelevanceTrees{MaxDepth: depth, MinCount: minLeafSize}
	}

	config := rakel.Config{
		NumLabels:  numLabels,
		NumModels:  numModels,
		SubsetSize: subsetSize,
		Threshold:  &threshold,
		Base:       base,
		Rand:       rand.New(rand.NewSource(seed)),
		Verbose:    verbose,
	}
	if cv {
		if cvMaxK == 0 {
			cvMaxK = numLabels - 1
		}
		config.Search = &rakel.SearchConfig{
			NumFolds:           cvFolds,
			MinK:               1,
			MaxK:               cvMaxK,
			StepK:              1,
			MaxM:               cvMaxModels,
			ThresholdStart:     0.1,
			ThresholdIncrement: 0.8 / float64(essentials.MaxInt(1, cvThresholdSteps-1)),
			ThresholdSteps:     cvThresholdSteps,
		}
	}
	ensemble, err := rakel.New(config)
	essentials.Must(err)

	log.Println("Training ensemble...")
	essentials.Must(ensemble.Fit(train))
	if result := ensemble.SearchResult(); result != nil {
		for _, state := range result.History {
			log.Printf("improved: k=%d m=%d t=%.3f loss=%f", state.SubsetSize,
				state.NumModels, state.Threshold, state.Loss)
		}
		for _, err := range result.FoldErrors {
			log.Printf("fold error: %s", err)
		}
	}
	log.Printf("Using k=%d m=%d t=%.3f", ensemble.SubsetSize(), ensemble.NumModels(),
		ensemble.Threshold())

	log.Println("Evaluating...")
	trainLoss := evaluate(ensemble, train)
	testLoss := evaluate(ensemble, test)
	fmt.Printf("train hamming loss: %f\n", trainLoss)
	fmt.Printf("test hamming loss: %f\n", testLoss)
}

func randomSolids(n int) []model3d.Solid {
	min := model3d.XYZ(-1, -1, -1)
	max := model3d.XYZ(1, 1, 1)
	res := make([]model3d.Solid, n)
	for i := range res {
		center := model3d.NewCoord3DRandBounds(min, max)
		switch i % 4 {
		case 0:
			res[i] = &model3d.Sphere{
				Center: center,
				Radius: 0.3 + rand.Float64()*0.5,
			}
		case 1:
			res[i] = &model3d.Capsule{
				P1:     center,
				P2:     model3d.NewCoord3DRandBounds(min, max),
				Radius: 0.2 + rand.Float64()*0.2,
			}
		case 2:
			size := 0.2 + rand.Float64()*0.4
			res[i] = &model3d.Rect{
				MinVal: center.Sub(model3d.XYZ(size, size, size)),
				MaxVal: center.Add(model3d.XYZ(size, size, size)),
			}
		case 3:
			res[i] = &model3d.Cylinder{
				P1:     center,
				P2:     model3d.NewCoord3DRandBounds(min, max),
				Radius: 0.2 + rand.Float64()*0.3,
			}
		}
	}
	return res
}

func solidsDataset(solids []model3d.Solid, numPoints, noiseFeatures int) *rakel.Dataset {
	min := model3d.XYZ(-1, -1, -1)
	max := model3d.XYZ(1, 1, 1)
	examples := make([]rakel.Example, numPoints)
	for i := range examples {
		point := model3d.NewCoord3DRandBounds(min, max)
		features := rakel.DenseFeatures{point.X, point.Y, point.Z}
		for j := 0; j < noiseFeatures; j++ {
			features = append(features, rand.Float64()*2-1)
		}
		labels := make([]bool, len(solids))
		for j, solid := range solids {
			labels[j] = solid.Contains(point)
		}
		examples[i] = rakel.Example{Features: features, Labels: labels}
	}
	data, err := rakel.NewDataset(3+noiseFeatures, len(solids), examples)
	essentials.Must(err)
	return data
}

func logLabelDensity(data *rakel.Dataset) {
	density := make([]float64, data.NumLabels)
	row := make([]float64, data.NumLabels)
	for _, ex := range data.Examples {
		for i, x := range ex.Labels {
			row[i] = 0
			if x {
				row[i] = 1
			}
		}
		floats.Add(density, row)
	}
	floats.Scale(1/float64(data.Len()), density)
	log.Printf("Label density: %.3f (mean %.3f)", density,
		floats.Sum(density)/float64(len(density)))
}

func evaluate(e *rakel.Ensemble, data *rakel.Dataset) float64 {
	preds, err := e.PredictSet(data)
	if errors.Is(err, rakel.ErrUnderCoverage) {
		log.Fatalf("%s (try increasing -models)", err)
	}
	essentials.Must(err)
	loss, err := rakel.HammingLoss(preds, data.Truths())
	essentials.Must(err)
	return loss
}
