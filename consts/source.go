package consts

const (
	CSSETimeSeriesURL = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_time_series/"
	CSSEConfirmedURL  = CSSETimeSeriesURL + "time_series_covid19_confirmed_global.csv"
	CSSEDeathsURL     = CSSETimeSeriesURL + "time_series_covid19_deaths_global.csv"
	BrasilIOCasesURL  = "https://data.brasil.io/dataset/covid19/caso.csv.gz"
)

// serial interval of COVID-19 in days
const (
	DefaultMeanSI = 4.7
	DefaultStdSI  = 2.9
)
