// Package solar computes clear-sky solar irradiance for a site, used to
// decide whether a measured radiation value counts as "sunshine" when
// accumulating sunshine hours.
package solar

import (
	"math"
	"time"
)

// solarConstant is the average solar energy at the top of the atmosphere, W/m2
const solarConstant = 1361.0

func degToRad(deg float64) float64 { return deg * (math.Pi / 180.0) }
func radToDeg(rad float64) float64 { return rad * (180.0 / math.Pi) }

func fixAngle(angle float64) float64 { return math.Mod(angle+360, 360) }

func julianDay(t time.Time) float64 {
	return 2440587.5 + float64(t.Unix())/86400.0
}

// equationOfTime returns the difference between apparent and mean solar
// time, in minutes, for the given instant.
func equationOfTime(t time.Time) float64 {
	T := (julianDay(t) - 2451545.0) / 36525.0

	L0 := fixAngle(280.46646 + T*(36000.76983+T*0.0003032))
	M := fixAngle(357.52911 + T*(35999.05029-T*0.0001537))
	e := 0.016708634 - T*(0.000042037+T*0.0000001267)
	eps0 := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60

	y := math.Tan(degToRad(eps0) / 2)
	y *= y

	return radToDeg(y*math.Sin(degToRad(2*L0))-
		2*e*math.Sin(degToRad(M))+
		4*e*y*math.Sin(degToRad(M))*math.Cos(degToRad(2*L0))-
		0.5*y*y*math.Sin(degToRad(4*L0))-
		1.25*e*e*math.Sin(degToRad(2*M))) * 4
}

// zenithAngle returns the solar zenith angle in degrees for the given UTC
// instant and site position.
func zenithAngle(t time.Time, latitude, longitude float64) float64 {
	N := t.YearDay()
	delta := 23.45 * math.Sin(degToRad(360.0/365.0*float64(N-81)))

	utcMin := float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60.0
	tst := utcMin + 4*longitude + equationOfTime(t)
	H := (tst / 4) - 180

	cosThetaZ := math.Sin(degToRad(latitude))*math.Sin(degToRad(delta)) +
		math.Cos(degToRad(latitude))*math.Cos(degToRad(delta))*math.Cos(degToRad(H))
	return radToDeg(math.Acos(cosThetaZ))
}

// ClearSkyGHI computes the Global Horizontal Irradiance in W/m2 under
// clear-sky conditions using the Ineichen-Perez model.  Returns 0 when the
// sun is below the horizon.
func ClearSkyGHI(t time.Time, latitude, longitude, altitude float64) float64 {
	t = t.UTC()
	N := t.YearDay()
	thetaZ := zenithAngle(t, latitude, longitude)
	if thetaZ >= 90.0 {
		return 0.0
	}

	// Extraterrestrial radiation, adjusted for Earth-Sun distance
	G0 := solarConstant * (1 + 0.033*math.Cos(degToRad(360.0*(float64(N)-3)/365.0)))

	// Linke turbidity 2.0 is typical for clear skies; Kasten-Young air mass
	TL := 2.0
	AM := 1.0 / (math.Cos(degToRad(thetaZ)) + 0.50572*math.Pow(96.07995-thetaZ, -1.6364))

	DNI := G0 * 0.7 * math.Exp(-0.027*AM*TL*math.Exp(-altitude/8000.0))
	fh := 0.1 + 0.05*math.Sin(math.Pi*float64(N-100)/365.0)
	DHI := fh * G0 * math.Sin(degToRad(thetaZ))

	return DNI*math.Cos(degToRad(thetaZ)) + DHI
}

// IsSunny reports whether a measured radiation value exceeds the given
// percentage of the clear-sky maximum for the site at that instant.  Always
// false at night or for non-positive measurements.
func IsSunny(measured float64, t time.Time, latitude, longitude, altitude float64, thresholdPercent int) bool {
	if measured <= 0 {
		return false
	}
	max := ClearSkyGHI(t, latitude, longitude, altitude)
	if max <= 0 {
		return false
	}
	return measured >= max*float64(thresholdPercent)/100.0
}
