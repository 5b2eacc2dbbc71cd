package model

import (
	"strconv"

	log "github.com/golang/glog"

	"github.com/bobonovski/lftm/corpus"
	"github.com/bobonovski/lftm/sstable"
)

func init() {
	Register("lflda", NewLFLDA)
}

// LFLDA is the latent feature LDA model: every token carries its own
// (topic, component) assignment, resampled one token at a time with
// collapsed Gibbs sampling over the 2K augmented cells.
type LFLDA struct {
	*sampler

	// docTopic[d][t] counts how many tokens of document d are
	// assigned to topic t, over both components.
	docTopic *sstable.Uint32Matrix
}

// NewLFLDA creates an LF-LDA instance on a training corpus,
// initializing the count tables either randomly or by replaying a
// persisted topic-assignment file.
func NewLFLDA(cfg Config) (Model, error) {
	data, err := corpus.Load(cfg.CorpusPath)
	if err != nil {
		return nil, err
	}
	s, err := newSampler(cfg, data, 2*cfg.NumTopics)
	if err != nil {
		return nil, err
	}
	m := &LFLDA{
		sampler:  s,
		docTopic: sstable.NewUint32Matrix(uint32(data.NumDocs()), uint32(cfg.NumTopics)),
	}

	if cfg.InitFile != "" {
		if err := m.initFromAssignments(cfg.InitFile); err != nil {
			return nil, err
		}
	} else {
		m.initRandom()
	}

	log.Infof("LF-LDA: %d topics, alpha %g, beta %g, lambda %g, %d+%d iterations",
		cfg.NumTopics, cfg.Alpha, cfg.Beta, cfg.Lambda, cfg.InitIters, cfg.Iters)
	return m, nil
}

// initRandom draws a uniformly random (topic, component) pair for
// every token and populates all count tables consistently.
func (m *LFLDA) initRandom() {
	log.Info("randomly initializing topic assignments")

	m.assignments = make([][]int, m.data.NumDocs())
	for d, doc := range m.data.Docs {
		topics := make([]int, len(doc))
		for i, word := range doc {
			subtopic := m.rng.Intn(2 * m.cfg.NumTopics)
			m.docTopic.Incr(uint32(d), uint32(topicOf(subtopic, m.cfg.NumTopics)), 1)
			m.counts.incr(subtopic, word)
			topics[i] = subtopic
		}
		m.assignments[d] = topics
	}
}

// initFromAssignments replays a persisted assignment file,
// reproducing the exact totals that random initialization would
// produce for the same values.
func (m *LFLDA) initFromAssignments(fn string) error {
	log.Infof("replaying topic assignments from %s", fn)

	assignments, err := readAssignments(fn, m.data.Docs, m.cfg.NumTopics)
	if err != nil {
		return err
	}
	m.assignments = assignments
	for d, doc := range m.data.Docs {
		for i, word := range doc {
			subtopic := m.assignments[d][i]
			m.docTopic.Incr(uint32(d), uint32(topicOf(subtopic, m.cfg.NumTopics)), 1)
			m.counts.incr(subtopic, word)
		}
	}
	return nil
}

func (m *LFLDA) Inference() error {
	log.Info("running LF-LDA Gibbs sampling inference")

	for iter := 1; iter <= m.cfg.InitIters; iter += 1 {
		log.Infof("initial sampling iteration %d", iter)
		m.sampleInitIteration()
	}

	if m.cfg.Iters > 0 {
		m.phase = phaseEM
	}
	for iter := 1; iter <= m.cfg.Iters; iter += 1 {
		log.Infof("LF-LDA sampling iteration %d", iter)

		if err := m.tv.optimize(m.counts, m.vectors); err != nil {
			return err
		}
		m.sampleIteration()

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

// sampleInitIteration performs one sweep of the bootstrap phase: the
// latent feature term is the smoothed ratio over latent feature
// counts, since topic vectors are not estimated yet.
func (m *LFLDA) sampleInitIteration() {
	numTopics := m.cfg.NumTopics
	for d, doc := range m.data.Docs {
		for i, word := range doc {
			subtopic := m.assignments[d][i]
			topic := topicOf(subtopic, numTopics)

			// leave-one-out: retract the token before sampling
			m.docTopic.Decr(uint32(d), uint32(topic), 1)
			m.counts.decr(subtopic, word)

			for t := 0; t < numTopics; t += 1 {
				docPart := float64(m.docTopic.Get(uint32(d), uint32(t))) + m.cfg.Alpha
				m.multiPros[t] = docPart * m.cfg.Lambda *
					m.counts.lfRatio(t, word, m.cfg.Beta, m.betaSum)
				m.multiPros[t+numTopics] = docPart * (1 - m.cfg.Lambda) *
					m.counts.dmRatio(t, word, m.cfg.Beta, m.betaSum)
			}
			subtopic = nextDiscrete(m.rng, m.multiPros)
			topic = topicOf(subtopic, numTopics)

			m.docTopic.Incr(uint32(d), uint32(topic), 1)
			m.counts.incr(subtopic, word)
			m.assignments[d][i] = subtopic
		}
	}
}

// sampleIteration performs one EM-phase sweep: the latent feature
// term reads the partition cache produced by the preceding topic
// vector estimation.
func (m *LFLDA) sampleIteration() {
	numTopics := m.cfg.NumTopics
	for d, doc := range m.data.Docs {
		for i, word := range doc {
			subtopic := m.assignments[d][i]
			topic := topicOf(subtopic, numTopics)

			m.docTopic.Decr(uint32(d), uint32(topic), 1)
			m.counts.decr(subtopic, word)

			for t := 0; t < numTopics; t += 1 {
				docPart := float64(m.docTopic.Get(uint32(d), uint32(t))) + m.cfg.Alpha
				m.multiPros[t] = docPart * m.cfg.Lambda * m.tv.lfProb(t, word)
				m.multiPros[t+numTopics] = docPart * (1 - m.cfg.Lambda) *
					m.counts.dmRatio(t, word, m.cfg.Beta, m.betaSum)
			}
			subtopic = nextDiscrete(m.rng, m.multiPros)
			topic = topicOf(subtopic, numTopics)

			m.docTopic.Incr(uint32(d), uint32(topic), 1)
			m.counts.incr(subtopic, word)
			m.assignments[d][i] = subtopic
		}
	}
}

// Write serializes the reporting artifacts of the current state: top
// topical words, document-topic distribution, raw assignments and
// the topic-word distribution.
func (m *LFLDA) Write() error {
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
// document: the smoothed topic proportion of its token counts.
func (m *LFLDA) thetaWeights(docId int, dst []float64) {
	docLen := float64(len(m.data.Docs[docId]))
	alphaSum := float64(m.cfg.NumTopics) * m.cfg.Alpha
	for t := 0; t < m.cfg.NumTopics; t += 1 {
		dst[t] = (float64(m.docTopic.Get(uint32(docId), uint32(t))) + m.cfg.Alpha) /
			(docLen + alphaSum)
	}
}
