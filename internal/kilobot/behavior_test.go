package kilobot_test

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/kilosim/internal/dynamo"
	"github.com/san-kum/kilosim/internal/kilobot"
	"github.com/san-kum/kilosim/internal/light"
	"github.com/san-kum/kilosim/internal/physics"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var _ = Describe("Kilobot", func() {
	var world *physics.World

	BeforeEach(func() {
		world = physics.NewWorld()
	})

	It("requires a behavior", func() {
		_, err := kilobot.New(world, dynamo.Pose{}, nil, nil)
		Expect(err).To(MatchError(dynamo.ErrMissingBehavior))
	})

	It("requires a world", func() {
		_, err := kilobot.New(nil, dynamo.Pose{}, nil, kilobot.Fixed{})
		Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
	})

	It("reads no light when none is attached", func() {
		k, err := kilobot.New(world, dynamo.Pose{}, nil, kilobot.Fixed{})
		Expect(err).NotTo(HaveOccurred())
		Expect(k.AmbientLight()).To(BeZero())
	})

	It("reads the light at the rear sensor point", func() {
		l, err := light.NewSinglePosition(light.PositionConfig{Position: mgl64.Vec2{0, 1}})
		Expect(err).NotTo(HaveOccurred())
		k, err := kilobot.New(world, dynamo.Pose{}, l, kilobot.Fixed{})
		Expect(err).NotTo(HaveOccurred())

		Expect(k.SensorPosition().ApproxEqualThreshold(mgl64.Vec2{0, -k.Radius()}, 1e-12)).To(BeTrue())
		Expect(k.AmbientLight()).To(BeNumerically("~", -(1 + k.Radius()), 1e-12))
	})

	It("switches between turn directions with their colors", func() {
		k, err := kilobot.New(world, dynamo.Pose{}, nil, kilobot.Fixed{})
		Expect(err).NotTo(HaveOccurred())
		Expect(k.TurnDirection()).To(Equal(kilobot.NoTurn))

		k.SwitchDirection()
		Expect(k.TurnDirection()).To(Equal(kilobot.Left))
		Expect(k.Motors()).To(Equal(kilobot.MotorCommand{Left: 255}))
		Expect(k.Color()).To(Equal(kilobot.ColorLeft))

		k.SwitchDirection()
		Expect(k.TurnDirection()).To(Equal(kilobot.Right))
		Expect(k.Motors()).To(Equal(kilobot.MotorCommand{Right: 255}))
		Expect(k.Color()).To(Equal(kilobot.ColorRight))
	})

	It("drives forward along its heading in the world", func() {
		k, err := kilobot.New(world, dynamo.Pose{}, nil, kilobot.Fixed{Command: kilobot.MotorCommand{Left: 255, Right: 255}})
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < 20; i++ {
			k.Step(0.1)
			world.Step(0.1, 8, 3)
		}
		pose := k.Pose()
		Expect(pose.Y).To(BeNumerically(">", 0.01))
		Expect(math.Abs(pose.X)).To(BeNumerically("<", 1e-9))
		Expect(math.Abs(pose.Theta)).To(BeNumerically("<", 1e-9))
		Expect(k.State().Left).To(Equal(uint8(255)))
	})

	It("removes its body on Destroy", func() {
		k, err := kilobot.New(world, dynamo.Pose{}, nil, kilobot.Fixed{})
		Expect(err).NotTo(HaveOccurred())
		Expect(world.BodyCount()).To(Equal(1))

		k.Destroy()
		Expect(k.Destroyed()).To(BeTrue())
		Expect(world.BodyCount()).To(BeZero())
		k.Step(0.1)
		k.Destroy()
	})

	It("keeps its last pose readable after Destroy", func() {
		l, err := light.NewSinglePosition(light.PositionConfig{})
		Expect(err).NotTo(HaveOccurred())
		pose := dynamo.Pose{X: 0.2, Y: -0.1, Theta: math.Pi / 2}
		k, err := kilobot.New(world, pose, l, kilobot.Fixed{})
		Expect(err).NotTo(HaveOccurred())
		sensor := k.SensorPosition()

		k.Destroy()
		Expect(k.Pose().X).To(BeNumerically("~", pose.X, 1e-9))
		Expect(k.Pose().Y).To(BeNumerically("~", pose.Y, 1e-9))
		Expect(k.Position().ApproxEqualThreshold(mgl64.Vec2{pose.X, pose.Y}, 1e-9)).To(BeTrue())
		Expect(k.SensorPosition().ApproxEqualThreshold(sensor, 1e-9)).To(BeTrue())
		Expect(k.Body()).To(BeNil())

		st := k.State()
		Expect(st.Ambient).To(BeZero())
		Expect(st.Pose.Theta).To(BeNumerically("~", pose.Theta, 1e-9))
	})

	It("reads its sensor and LED offsets from the geometry", func() {
		geom := kilobot.DefaultGeometry()
		geom.LightSensor = mgl64.Vec2{0.01, 0}
		geom.LED = mgl64.Vec2{0, 0.005}
		pose := dynamo.Pose{X: 0.1, Theta: math.Pi / 2}

		k, err := kilobot.New(world, pose, nil, kilobot.Fixed{}, kilobot.WithGeometry(geom))
		Expect(err).NotTo(HaveOccurred())
		Expect(k.Geometry()).To(Equal(geom))

		// a quarter turn maps local +X to world +Y and local +Y to world -X
		Expect(k.SensorPosition().ApproxEqualThreshold(mgl64.Vec2{0.1, 0.01}, 1e-9)).To(BeTrue())
		Expect(k.LEDPosition().ApproxEqualThreshold(mgl64.Vec2{0.095, 0}, 1e-9)).To(BeTrue())
		Expect(kilobot.WorldPoint(pose, geom.LED).ApproxEqualThreshold(k.LEDPosition(), 1e-9)).To(BeTrue())
	})
})

var _ = Describe("ThresholdPhototaxis", func() {
	var (
		world *physics.World
		lt    *scriptedLight
		b     *kilobot.ThresholdPhototaxis
		k     *kilobot.Kilobot
	)

	BeforeEach(func() {
		world = physics.NewWorld()
		lt = &scriptedLight{value: 10}
		b = kilobot.NewThresholdPhototaxis()
		var err error
		k, err = kilobot.New(world, dynamo.Pose{}, lt, b)
		Expect(err).NotTo(HaveOccurred())
	})

	It("starts turning left", func() {
		Expect(k.TurnDirection()).To(Equal(kilobot.Left))
		Expect(k.Color()).To(Equal(kilobot.ColorLeft))
		Expect(math.IsInf(b.Threshold(), -1)).To(BeTrue())
	})

	It("samples once every update interval", func() {
		for i := 0; i < 61; i++ {
			b.Loop(k)
		}
		Expect(lt.reads).To(Equal(3))
	})

	Context("with an update interval of one", func() {
		BeforeEach(func() {
			Expect(b.SetParam("update_interval", 1)).To(Succeed())
		})

		It("adopts every improvement and resets the counter", func() {
			dirs := []kilobot.Direction{}
			for i := 0; i < 4; i++ {
				lt.value = float64(i)
				b.Loop(k)
				dirs = append(dirs, k.TurnDirection())
				Expect(b.NoChangeCount()).To(BeZero())
				Expect(b.Threshold()).To(Equal(float64(i)))
			}
			Expect(dirs).To(Equal([]kilobot.Direction{kilobot.Right, kilobot.Left, kilobot.Right, kilobot.Left}))
		})

		It("gives up on a stale threshold after the no-change limit", func() {
			b.Loop(k)
			Expect(k.TurnDirection()).To(Equal(kilobot.Right))

			for i := 1; i <= kilobot.DefaultNoChangeThreshold; i++ {
				b.Loop(k)
				Expect(b.NoChangeCount()).To(Equal(i))
				Expect(k.TurnDirection()).To(Equal(kilobot.Right))
			}

			b.Loop(k)
			Expect(b.NoChangeCount()).To(BeZero())
			Expect(k.TurnDirection()).To(Equal(kilobot.Left))
		})

		It("lowers the threshold when giving up", func() {
			lt.value = 50
			b.Loop(k)
			lt.value = 20
			for i := 0; i <= kilobot.DefaultNoChangeThreshold; i++ {
				b.Loop(k)
			}
			Expect(b.Threshold()).To(Equal(20.0))
		})
	})

	It("rejects bad parameters", func() {
		Expect(b.SetParam("update_interval", 0)).To(MatchError(dynamo.ErrInvalidConfig))
		Expect(b.SetParam("update_interval", 2.5)).To(MatchError(dynamo.ErrInvalidConfig))
		Expect(b.SetParam("speed", 1)).To(MatchError(dynamo.ErrInvalidConfig))
	})
})

var _ = Describe("SwitchingPhototaxis", func() {
	var (
		world *physics.World
		l     *light.SinglePosition
		b     *kilobot.SwitchingPhototaxis
		k     *kilobot.Kilobot
	)

	BeforeEach(func() {
		world = physics.NewWorld()
		var err error
		l, err = light.NewSinglePosition(light.PositionConfig{Position: mgl64.Vec2{0, 2}, Absolute: true})
		Expect(err).NotTo(HaveOccurred())
		b = kilobot.NewSwitchingPhototaxis()
		k, err = kilobot.New(world, dynamo.Pose{}, l, b)
		Expect(err).NotTo(HaveOccurred())
	})

	It("keeps turning while the reading does not improve", func() {
		b.Loop(k)
		b.Loop(k)
		Expect(b.Misses()).To(Equal(2))
		Expect(k.TurnDirection()).To(Equal(kilobot.Left))
	})

	It("switches when the light gets closer", func() {
		b.Loop(k)
		l.Step([]float64{0, 0.5}, 0.1)
		b.Loop(k)
		Expect(b.Misses()).To(BeZero())
		Expect(k.TurnDirection()).To(Equal(kilobot.Right))
	})

	It("holds still in its decisions on top of the light", func() {
		l.Step([]float64{0, -k.Radius()}, 0.1)
		b.Loop(k)
		b.Loop(k)
		Expect(b.Misses()).To(BeZero())
		Expect(k.TurnDirection()).To(Equal(kilobot.Left))
	})

	It("falls back to the ambient reading for lights without a source", func() {
		lt := &scriptedLight{value: 3}
		k.SetLight(lt)
		b.Loop(k)
		Expect(lt.reads).To(Equal(1))
		Expect(k.TurnDirection()).To(Equal(kilobot.Right))
	})

	It("warns when created without a light", func() {
		core, logs := observer.New(zap.WarnLevel)
		_, err := kilobot.New(world, dynamo.Pose{}, nil, kilobot.NewSwitchingPhototaxis(), kilobot.WithLogger(zap.New(core)))
		Expect(err).NotTo(HaveOccurred())
		Expect(logs.FilterMessage("phototaxis kilobot has no light").Len()).To(Equal(1))
	})
})

var _ = Describe("NewBehavior", func() {
	It("builds behaviors by name with parameters", func() {
		b, err := kilobot.NewBehavior("Fixed", map[string]float64{"left": 10, "right": 20})
		Expect(err).NotTo(HaveOccurred())
		Expect(b.(*kilobot.Fixed).Command).To(Equal(kilobot.MotorCommand{Left: 10, Right: 20}))

		b, err = kilobot.NewBehavior("threshold", map[string]float64{"update_interval": 5})
		Expect(err).NotTo(HaveOccurred())
		Expect(b.(*kilobot.ThresholdPhototaxis).UpdateInterval).To(Equal(5))
	})

	It("rejects unknown names and bad motor values", func() {
		_, err := kilobot.NewBehavior("wander", nil)
		Expect(err).To(MatchError(dynamo.ErrUnknownVariant))

		_, err = kilobot.NewBehavior("fixed", map[string]float64{"left": 300})
		Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
	})

	It("lists the available behaviors", func() {
		Expect(kilobot.BehaviorNames()).To(Equal([]string{"fixed", "switching", "threshold"}))
	})
})
