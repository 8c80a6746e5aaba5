package boot

// Startup bong timing and envelope constants (spec §4.8).
const (
	hardBootSamples  = 7812  // 250ms at 31250Hz
	bongCycleSamples = 23437 // ~750ms at 31250Hz

	bongInitialAmplitude = 0x0FFF
	bongEnvelopePeriod   = 31 // samples between decay multiplies (~1ms)
	bongSignFlipPeriod   = 80 // samples between sign flips (195Hz square wave)
	bongDecayNumerator   = 0x7F80
	bongDecayDenominator = 0x8000
)

// bongGenerator produces the decaying 195Hz square-wave startup chime, one
// sample at a time: amplitude decays geometrically every bongEnvelopePeriod
// samples, sign flips every bongSignFlipPeriod samples.
type bongGenerator struct {
	amplitude   int32
	sign        int32
	sampleCount int
}

func newBongGenerator() *bongGenerator {
	return &bongGenerator{amplitude: bongInitialAmplitude, sign: 1}
}

func (g *bongGenerator) next() int16 {
	s := int16(g.sign * g.amplitude)
	g.sampleCount++
	if g.sampleCount%bongSignFlipPeriod == 0 {
		g.sign = -g.sign
	}
	if g.sampleCount%bongEnvelopePeriod == 0 {
		g.amplitude = g.amplitude * bongDecayNumerator / bongDecayDenominator
	}
	return s
}
