package kilobot_test

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/kilosim/internal/dynamo"
	"github.com/san-kum/kilosim/internal/kilobot"
)

var _ = Describe("Kinematics", func() {
	var (
		geom kilobot.Geometry
		kin  kilobot.Kinematics
		body *fakeBody
	)

	BeforeEach(func() {
		geom = kilobot.DefaultGeometry()
		kin = kilobot.NewKinematics(geom)
		body = &fakeBody{pose: dynamo.Pose{X: 0.3, Y: -0.2}}
	})

	It("stands still without a command", func() {
		linear, angular := kin.Velocity(kilobot.MotorCommand{}, body, 0.1)
		Expect(linear).To(Equal(mgl64.Vec2{}))
		Expect(angular).To(BeZero())
	})

	DescribeTable("symmetric commands drive straight along the heading",
		func(duty uint8, theta float64) {
			body.pose.Theta = theta
			linear, angular := kin.Velocity(kilobot.MotorCommand{Left: duty, Right: duty}, body, 0.1)

			Expect(angular).To(BeZero())
			Expect(linear.Len()).To(BeNumerically("~", float64(duty)/255*geom.MaxLinearVelocity, 1e-15))
			heading := mgl64.Vec2{-math.Sin(theta), math.Cos(theta)}
			Expect(linear.Normalize().ApproxEqualThreshold(heading, 1e-12)).To(BeTrue())
		},
		Entry("full duty facing +y", uint8(255), 0.0),
		Entry("half duty facing +y", uint8(128), 0.0),
		Entry("full duty rotated a quarter turn", uint8(255), math.Pi/2),
		Entry("low duty rotated", uint8(10), -2.0),
	)

	It("drives towards the front leg", func() {
		geom.LegFront = mgl64.Vec2{0.01, 0}
		kin = kilobot.NewKinematics(geom)

		linear, _ := kin.Velocity(kilobot.MotorCommand{Left: 255, Right: 255}, body, 0.1)
		Expect(linear.ApproxEqualThreshold(mgl64.Vec2{geom.MaxLinearVelocity, 0}, 1e-15)).To(BeTrue())
		Expect(kilobot.Geometry{}.Forward()).To(Equal(mgl64.Vec2{0, 1}))
	})

	It("turns with the motor difference when both are active", func() {
		_, angular := kin.Velocity(kilobot.MotorCommand{Left: 55, Right: 255}, body, 0.1)
		Expect(angular).To(BeNumerically("~", 200.0/510*geom.MaxAngularVelocity, 1e-15))
	})

	DescribeTable("single-motor angular velocity does not depend on dt",
		func(cmd kilobot.MotorCommand, want float64) {
			for _, dt := range []float64{0.001, 0.1, 1, 3} {
				_, angular := kin.Velocity(cmd, body, dt)
				Expect(angular).To(BeNumerically("~", want*geom.MaxAngularVelocity, 1e-15))
			}
		},
		Entry("right only", kilobot.MotorCommand{Right: 255}, 1.0),
		Entry("left only", kilobot.MotorCommand{Left: 255}, -1.0),
		Entry("weak right", kilobot.MotorCommand{Right: 51}, 0.2),
	)

	DescribeTable("single-motor commands pivot about the opposite leg",
		func(cmd kilobot.MotorCommand, leg func(kilobot.Geometry) mgl64.Vec2) {
			body.pose.Theta = 0.7
			dt := 0.5
			pivot := body.WorldPoint(leg(geom))

			linear, angular := kin.Velocity(cmd, body, dt)

			moved := &fakeBody{pose: dynamo.Pose{
				X:     body.pose.X + linear[0]*dt,
				Y:     body.pose.Y + linear[1]*dt,
				Theta: body.pose.Theta + angular*dt,
			}}
			Expect(moved.WorldPoint(leg(geom)).ApproxEqualThreshold(pivot, 1e-12)).To(BeTrue())
		},
		Entry("right motor pivots on the left leg", kilobot.MotorCommand{Right: 255}, func(g kilobot.Geometry) mgl64.Vec2 { return g.LegLeft }),
		Entry("left motor pivots on the right leg", kilobot.MotorCommand{Left: 200}, func(g kilobot.Geometry) mgl64.Vec2 { return g.LegRight }),
	)

	It("does not translate a pivot with a non-positive dt", func() {
		for _, dt := range []float64{0, -0.1} {
			linear, angular := kin.Velocity(kilobot.MotorCommand{Right: 255}, body, dt)
			Expect(linear).To(Equal(mgl64.Vec2{}))
			Expect(angular).To(BeNumerically("~", geom.MaxAngularVelocity, 1e-15))
		}
	})

	It("leaves the command untouched", func() {
		cmd := kilobot.MotorCommand{Left: 12, Right: 0}
		kin.Velocity(cmd, body, 0.1)
		Expect(cmd).To(Equal(kilobot.MotorCommand{Left: 12}))
		Expect(cmd.Active()).To(BeTrue())
	})
})
