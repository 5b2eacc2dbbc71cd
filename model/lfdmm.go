package model

import (
	"strconv"

	log "github.com/golang/glog"

	"github.com/bobonovski/lftm/corpus"
)

func init() {
	Register("lfdmm", NewLFDMM)
}

// LFDMM is the latent feature Dirichlet multinomial mixture model:
// one topic is shared by a whole document, per-token assignments
// only distinguish the generating component. Resampling retracts the
// whole document, draws a new topic from the product of its tokens'
// mixture probabilities and then re-decides each token's component
// under an explicit policy: stochastic during the initial
// iterations, deterministic argmax during the EM-style iterations.
type LFDMM struct {
	*sampler

	// docTopicCount[t] counts the non-empty documents assigned to
	// topic t.
	docTopicCount []uint32

	initPolicy componentPolicy
	emPolicy   componentPolicy
}

// NewLFDMM creates an LF-DMM instance on a training corpus.
func NewLFDMM(cfg Config) (Model, error) {
	data, err := corpus.Load(cfg.CorpusPath)
	if err != nil {
		return nil, err
	}
	s, err := newSampler(cfg, data, cfg.NumTopics)
	if err != nil {
		return nil, err
	}
	m := &LFDMM{
		sampler:       s,
		docTopicCount: make([]uint32, cfg.NumTopics),
		initPolicy:    pickStochastic,
		emPolicy:      pickArgmax,
	}

	if cfg.InitFile != "" {
		if err := m.initFromAssignments(cfg.InitFile); err != nil {
			return nil, err
		}
	} else {
		m.initRandom()
	}

	log.Infof("LF-DMM: %d topics, alpha %g, beta %g, lambda %g, %d+%d iterations",
		cfg.NumTopics, cfg.Alpha, cfg.Beta, cfg.Lambda, cfg.InitIters, cfg.Iters)
	return m, nil
}

// initRandom assigns every document a uniformly random topic and
// every token a uniformly random component.
func (m *LFDMM) initRandom() {
	log.Info("randomly initializing topic assignments")

	m.assignments = make([][]int, m.data.NumDocs())
	for d, doc := range m.data.Docs {
		topics := make([]int, len(doc))
		topic := m.rng.Intn(m.cfg.NumTopics)
		if len(doc) > 0 {
			m.docTopicCount[topic] += 1
		}
		for i, word := range doc {
			subtopic := topic
			if m.rng.Intn(2) == 1 {
				subtopic += m.cfg.NumTopics
			}
			m.counts.incr(subtopic, word)
			topics[i] = subtopic
		}
		m.assignments[d] = topics
	}
}

// initFromAssignments replays a persisted assignment file. The
// document topic is taken from the first value of each line; every
// token's component follows from whether its value names that same
// topic. Stored assignments are normalized to the document topic so
// later decrements touch the right count cells.
func (m *LFDMM) initFromAssignments(fn string) error {
	log.Infof("replaying topic assignments from %s", fn)

	assignments, err := readAssignments(fn, m.data.Docs, m.cfg.NumTopics)
	if err != nil {
		return err
	}
	m.assignments = assignments
	for d, doc := range m.data.Docs {
		if len(doc) == 0 {
			continue
		}
		topic := topicOf(m.assignments[d][0], m.cfg.NumTopics)
		m.docTopicCount[topic] += 1
		for i, word := range doc {
			subtopic := topic
			if m.assignments[d][i] != topic {
				subtopic += m.cfg.NumTopics
			}
			m.counts.incr(subtopic, word)
			m.assignments[d][i] = subtopic
		}
	}
	return nil
}

func (m *LFDMM) Inference() error {
	log.Info("running LF-DMM Gibbs sampling inference")

	for iter := 1; iter <= m.cfg.InitIters; iter += 1 {
		log.Infof("initial sampling iteration %d", iter)
		m.sampleIteration(m.initPolicy)
	}

	if m.cfg.Iters > 0 {
		m.phase = phaseEM
	}
	for iter := 1; iter <= m.cfg.Iters; iter += 1 {
		log.Infof("LF-DMM sampling iteration %d", iter)

		if err := m.tv.optimize(m.counts, m.vectors); err != nil {
			return err
		}
		m.sampleIteration(m.emPolicy)

		if m.cfg.SaveStep > 0 && iter%m.cfg.SaveStep == 0 && iter < m.cfg.Iters {
			log.Infof("saving the output of the %d-th sample", iter)
			m.name = m.cfg.ExpName + "-" + strconv.Itoa(iter)
			if err := m.Write(); err != nil {
				return err
			}
			m.name = m.cfg.ExpName
		}
	}

	if err := m.cfg.WriteParas(m.outPath(".paras")); err != nil {
		return err
	}
	log.Info("writing output of the last sample")
	if err := m.Write(); err != nil {
		return err
	}
	if err := m.writeTopicVectors(); err != nil {
		return err
	}
	if err := m.writeDictionary(); err != nil {
		return err
	}
	if err := m.writeIDCorpus(); err != nil {
		return err
	}

	log.Info("sampling completed")
	return nil
}

// sampleIteration performs one sweep over whole documents. The
// latent feature term follows the current phase; the component of
// each token is re-decided under the given policy after the new
// topic is fixed.
func (m *LFDMM) sampleIteration(policy componentPolicy) {
	numTopics := m.cfg.NumTopics
	for d, doc := range m.data.Docs {
		if len(doc) == 0 {
			continue
		}
		topic := topicOf(m.assignments[d][0], numTopics)

		// retract the whole document before sampling its topic
		m.docTopicCount[topic] -= 1
		for i, word := range doc {
			m.counts.decr(m.assignments[d][i], word)
		}

		for t := 0; t < numTopics; t += 1 {
			weight := float64(m.docTopicCount[t]) + m.cfg.Alpha
			for _, word := range doc {
				weight *= m.cfg.Lambda*m.lfTerm(t, word) +
					(1-m.cfg.Lambda)*m.counts.dmRatio(t, word, m.cfg.Beta, m.betaSum)
			}
			m.multiPros[t] = weight
		}
		topic = nextDiscrete(m.rng, m.multiPros)

		m.docTopicCount[topic] += 1
		for i, word := range doc {
			lfWeight := m.cfg.Lambda * m.lfTerm(topic, word)
			dmWeight := (1 - m.cfg.Lambda) *
				m.counts.dmRatio(topic, word, m.cfg.Beta, m.betaSum)

			subtopic := topic
			if !policy.chooseLatent(m.rng, lfWeight, dmWeight) {
				subtopic += numTopics
			}
			m.counts.incr(subtopic, word)
			m.assignments[d][i] = subtopic
		}
	}
}

// Write serializes the reporting artifacts of the current state.
func (m *LFDMM) Write() error {
	if err := m.writeTopTopicalWords(); err != nil {
		return err
	}
	if err := m.writeTheta(m.thetaWeights); err != nil {
		return err
	}
	if err := m.writeTopicAssignments(); err != nil {
		return err
	}
	return m.writeTopicWordPros()
}

// thetaWeights fills the unnormalized document-topic weights of one
// document: the topic's document count prior times the product of
// the mixture probabilities of the document's tokens.
func (m *LFDMM) thetaWeights(docId int, dst []float64) {
	doc := m.data.Docs[docId]
	for t := 0; t < m.cfg.NumTopics; t += 1 {
		weight := float64(m.docTopicCount[t]) + m.cfg.Alpha
		for _, word := range doc {
			weight *= m.topicWordProb(t, word)
		}
		dst[t] = weight
	}
}
